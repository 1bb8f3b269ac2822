// Package recording is the parallel capture pipeline boundary. Recording
// runs alongside the audio protocol and has no coupling to it: a recorder
// failure never affects streaming correctness.
package recording

// Ref locates a finalized recording artifact.
type Ref struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// Recorder is acquired once at session start and finalized exactly once on
// session end, whichever exit path is taken.
type Recorder interface {
	// Name returns recorder name for logging.
	Name() string
	// Start acquires the recording resource.
	Start() error
	// Write appends raw PCM16 bytes to the recording.
	Write(pcm []byte) error
	// Finalize closes the recording and returns its locator. Finalize
	// failures are non-fatal to session teardown.
	Finalize() (Ref, error)
}
