// Package bridge exposes a websocket endpoint for a browser client to
// stream microphone frames (and optional camera frames) into the engine.
// The browser side ships float32 little-endian sample frames, base64-framed,
// the same shape an AudioWorklet produces.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nareswara/intervox/pkg/capture"
	"github.com/nareswara/intervox/pkg/frames"
	"github.com/nareswara/intervox/pkg/logging"
)

type Config struct {
	ServerAddr     string `mapstructure:"server_addr"`
	MediaPath      string `mapstructure:"media_path"`
	FrameBuffer    int
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8090"
	}
	if c.MediaPath == "" {
		c.MediaPath = "/media"
	}
	if c.FrameBuffer <= 0 {
		c.FrameBuffer = 256
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

// mediaEvent is one JSON message from the browser client.
type mediaEvent struct {
	Event string `json:"event"`
	Media *struct {
		Payload string `json:"payload"`
		Format  string `json:"format"`
	} `json:"media"`
	Frame *struct {
		Payload string `json:"payload"`
		MIME    string `json:"mime"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	} `json:"frame"`
}

// Source is a capture.Source fed by a single browser connection.
type Source struct {
	cfg      Config
	server   *http.Server
	upgrader websocket.Upgrader
	frameCh  chan []float32
	imageCh  chan frames.ImageFrame
	logger   *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	stopped atomic.Bool
}

func New(cfg Config) *Source {
	cfg = cfg.withDefaults()
	s := &Source{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		frameCh: make(chan []float32, cfg.FrameBuffer),
		imageCh: make(chan frames.ImageFrame, 16),
		logger:  logging.NewComponentLogger(slog.Default(), "capture_bridge"),
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	return s
}

func (s *Source) Name() string { return "bridge" }

func (s *Source) Frames() <-chan []float32 { return s.frameCh }

// Images yields sampled camera frames for presence detection.
func (s *Source) Images() <-chan frames.ImageFrame { return s.imageCh }

func (s *Source) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.Handle(s.cfg.MediaPath, s)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.server = &http.Server{
		Addr:              s.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = s.server.Close()
	}()
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("bridge_server_error", "error", err.Error())
		}
	}()
	return nil
}

func (s *Source) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if s.server != nil {
		_ = s.server.Close()
	}
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
	close(s.frameCh)
	close(s.imageCh)
	return nil
}

func (s *Source) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.stopped.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// One candidate per engine instance; a newer connection replaces the
	// previous one.
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if s.stopped.Load() {
			return
		}
		var evt mediaEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			continue
		}
		switch evt.Event {
		case "media":
			if evt.Media == nil {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(evt.Media.Payload)
			if err != nil {
				continue
			}
			var samples []float32
			if evt.Media.Format == "pcm16" {
				samples = capture.Float32FromPCM16(payload)
			} else {
				samples = decodeFloat32LE(payload)
			}
			if len(samples) == 0 {
				continue
			}
			select {
			case s.frameCh <- samples:
			default:
			}
		case "frame":
			if evt.Frame == nil {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(evt.Frame.Payload)
			if err != nil {
				continue
			}
			img := frames.NewImageFrame("", time.Now().UnixNano(), payload, evt.Frame.MIME, evt.Frame.Width, evt.Frame.Height, nil)
			select {
			case s.imageCh <- img:
			default:
			}
		case "stop":
			return
		}
	}
}

func (s *Source) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func decodeFloat32LE(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[4*i:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
