package bridge

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nareswara/intervox/pkg/capture"
)

func dialBridge(t *testing.T, s *Source) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func encodeFloat32LE(samples []float32) string {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(s))
	}
	return base64.StdEncoding.EncodeToString(out)
}

func TestMediaEventYieldsFloatFrame(t *testing.T) {
	s := New(Config{})
	conn := dialBridge(t, s)

	msg := map[string]any{
		"event": "media",
		"media": map[string]any{"payload": encodeFloat32LE([]float32{0.5, -0.25})},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case frame := <-s.Frames():
		if len(frame) != 2 {
			t.Fatalf("frame len = %d, want 2", len(frame))
		}
		if frame[0] != 0.5 || frame[1] != -0.25 {
			t.Fatalf("frame = %v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestMediaEventPCM16Format(t *testing.T) {
	s := New(Config{})
	conn := dialBridge(t, s)

	payload := base64.StdEncoding.EncodeToString(capture.PCM16FromFloat32([]float32{0.5}))
	msg := map[string]any{
		"event": "media",
		"media": map[string]any{"payload": payload, "format": "pcm16"},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case frame := <-s.Frames():
		if len(frame) != 1 || frame[0] != 0.5 {
			t.Fatalf("frame = %v, want [0.5]", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestFrameEventYieldsImage(t *testing.T) {
	s := New(Config{})
	conn := dialBridge(t, s)

	payload := base64.StdEncoding.EncodeToString([]byte{10, 20, 30, 40})
	msg := map[string]any{
		"event": "frame",
		"frame": map[string]any{"payload": payload, "mime": "image/gray", "width": 2, "height": 2},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case img := <-s.Images():
		if img.MIME() != "image/gray" {
			t.Fatalf("mime = %q", img.MIME())
		}
		if img.Width() != 2 || img.Height() != 2 {
			t.Fatalf("dims = %dx%d", img.Width(), img.Height())
		}
		if len(img.RawPayload()) != 4 {
			t.Fatalf("payload len = %d", len(img.RawPayload()))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no image received")
	}
}

func TestMalformedMessagesAreSkipped(t *testing.T) {
	s := New(Config{})
	conn := dialBridge(t, s)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad := map[string]any{
		"event": "media",
		"media": map[string]any{"payload": "not base64!!"},
	}
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write: %v", err)
	}
	good := map[string]any{
		"event": "media",
		"media": map[string]any{"payload": encodeFloat32LE([]float32{1})},
	}
	if err := conn.WriteJSON(good); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case frame := <-s.Frames():
		if len(frame) != 1 || frame[0] != 1 {
			t.Fatalf("frame = %v, want [1]", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not survive malformed messages")
	}
}

func TestOriginCheck(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"https://app.example.com"}})

	allowed := httptest.NewRequest(http.MethodGet, "/media", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	if !s.checkOrigin(allowed) {
		t.Fatal("allowed origin rejected")
	}

	denied := httptest.NewRequest(http.MethodGet, "/media", nil)
	denied.Header.Set("Origin", "https://evil.example.com")
	if s.checkOrigin(denied) {
		t.Fatal("unknown origin accepted")
	}
}

func TestStoppedBridgeRefusesUpgrade(t *testing.T) {
	s := New(Config{})
	_ = s.Stop()

	req := httptest.NewRequest(http.MethodGet, "/media", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.ServerAddr != ":8090" || cfg.MediaPath != "/media" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatal("origin check should default open when no list is set")
	}
}
