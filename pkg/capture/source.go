// Package capture pulls live microphone audio and converts it to the wire
// sample format, one fixed-size frame at a time.
package capture

import "context"

// Source pulls fixed-size frames of floating-point samples in [-1, 1] from
// a capture device at the source rate.
type Source interface {
	// Name returns the source name for logging/metrics.
	Name() string
	// Start acquires the device and begins producing frames.
	Start(ctx context.Context) error
	// Stop releases the device. Frames() is closed afterwards.
	Stop() error
	// Frames yields captured frames in production order.
	Frames() <-chan []float32
}
