// Package gemini implements the live channel over the Gemini
// BidiGenerateContent websocket API.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nareswara/intervox/pkg/channel"
	"github.com/nareswara/intervox/pkg/errorsx"
	"github.com/nareswara/intervox/pkg/logging"
)

const defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/" +
	"google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

type Config struct {
	APIKey           string `mapstructure:"api_key"`
	Endpoint         string `mapstructure:"endpoint"`
	HandshakeTimeout time.Duration
	EventBuffer      int
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 15 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
	return c
}

type Channel struct {
	cfg    Config
	conn   *websocket.Conn
	events chan channel.Event
	logger *slog.Logger

	writeMu    sync.Mutex
	closed     atomic.Bool
	onceEvents sync.Once
	cancel     context.CancelFunc
}

func New(cfg Config) *Channel {
	cfg = cfg.withDefaults()
	return &Channel{
		cfg:    cfg,
		events: make(chan channel.Event, cfg.EventBuffer),
		logger: logging.NewComponentLogger(slog.Default(), "gemini_channel"),
	}
}

func (c *Channel) Name() string { return "gemini" }

func (c *Channel) Events() <-chan channel.Event { return c.events }

func (c *Channel) Open(ctx context.Context, setup channel.Setup) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errorsx.Wrap(errors.New("api key is required"), errorsx.ReasonChannelOpen)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, c.cancel = context.WithCancel(ctx)

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	url := c.cfg.Endpoint + "?key=" + c.cfg.APIKey
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("dial live endpoint: %w", err), errorsx.ReasonChannelOpen)
	}
	c.conn = conn

	if err := conn.WriteJSON(newSetupMessage(setup)); err != nil {
		_ = conn.Close()
		return errorsx.Wrap(fmt.Errorf("send setup: %w", err), errorsx.ReasonChannelOpen)
	}

	// The server acknowledges the session before any content flows.
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	var ack serverMessage
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return errorsx.Wrap(fmt.Errorf("await setup ack: %w", err), errorsx.ReasonChannelOpen)
	}
	if ack.SetupComplete == nil {
		_ = conn.Close()
		return errorsx.Wrap(errors.New("unexpected first message before setup ack"), errorsx.ReasonChannelOpen)
	}
	_ = conn.SetReadDeadline(time.Time{})

	go c.readLoop()
	c.logger.Info("channel_open", "endpoint", c.cfg.Endpoint)
	return nil
}

func (c *Channel) SendAudio(frame channel.WireFrame) error {
	if c.closed.Load() || c.conn == nil {
		return errorsx.Wrap(errors.New("channel not open"), errorsx.ReasonChannelSend)
	}
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{Data: frame.Data, MIMEType: frame.MIMEType}},
		},
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonChannelSend)
	}
	return nil
}

func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn == nil {
		c.finishEvents()
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	if err := c.conn.Close(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonChannelClose)
	}
	return nil
}

// readLoop pumps server messages into the event stream until the socket
// closes. A message that fails to decode is dropped; the stream continues.
func (c *Channel) readLoop() {
	defer func() {
		c.closed.Store(true)
		c.finishEvents()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.emit(channel.Event{Kind: channel.EventClosed})
				} else {
					c.emit(channel.Event{Kind: channel.EventError, Err: errorsx.Wrap(err, errorsx.ReasonChannelRecv)})
					c.emit(channel.Event{Kind: channel.EventClosed})
				}
			}
			return
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("server_message_decode_failed", "error", err.Error())
			continue
		}
		if msg.ServerContent != nil {
			c.dispatchContent(msg.ServerContent)
		}
	}
}

func (c *Channel) dispatchContent(sc *serverContent) {
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				c.logger.Warn("inline_audio_decode_failed", "error", err.Error())
				continue
			}
			c.emit(channel.Event{Kind: channel.EventAudio, PCM: pcm})
		}
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		c.emit(channel.Event{Kind: channel.EventInputTranscription, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		c.emit(channel.Event{Kind: channel.EventOutputTranscription, Text: sc.OutputTranscription.Text})
	}
	if sc.Interrupted {
		c.emit(channel.Event{Kind: channel.EventInterrupted})
	}
	if sc.TurnComplete {
		c.emit(channel.Event{Kind: channel.EventTurnComplete})
	}
}

func (c *Channel) finishEvents() {
	c.onceEvents.Do(func() { close(c.events) })
}

func (c *Channel) emit(evt channel.Event) {
	if c.closed.Load() {
		return
	}
	c.events <- evt
}
