// Package stt defines the boundary for fallback candidate-side speech
// recognition, used when the remote channel's input transcription is
// disabled.
package stt

import (
	"context"

	"github.com/nareswara/intervox/pkg/frames"
)

// StreamingSTT defines the contract for any STT vendor implementation.
type StreamingSTT interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the STT connection.
	Start(ctx context.Context) error
	// Close shuts down the STT connection.
	Close() error
	// SendAudio sends capture frames to the STT service.
	SendAudio(frame frames.AudioFrame) error
	// Results returns a channel of candidate transcription frames.
	Results() <-chan frames.Frame
}

// Config contains vendor-agnostic STT configuration.
type Config struct {
	SessionID  string
	SampleRate int
	Language   string
}
