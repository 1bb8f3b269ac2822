package recording

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/nareswara/intervox/pkg/errorsx"
)

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WAVRecorder streams mono PCM16 to a WAV file as frames arrive. Start
// writes a placeholder header; Finalize patches the RIFF and data sizes
// once the stream length is known. Nothing accumulates in memory, so a
// full-length session costs no more than one frame at a time.
type WAVRecorder struct {
	dir        string
	sampleRate int

	mu        sync.Mutex
	id        string
	path      string
	f         *os.File
	dataLen   uint32
	started   bool
	finalized bool
}

func NewWAVRecorder(dir string, sampleRate int) *WAVRecorder {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &WAVRecorder{dir: dir, sampleRate: sampleRate}
}

func (r *WAVRecorder) Name() string { return "wav" }

func (r *WAVRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRecordingStart)
	}
	r.id = uuid.NewString()
	r.path = filepath.Join(r.dir, r.id+".wav")
	f, err := os.Create(r.path)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRecordingStart)
	}
	if _, err := f.Write(encodeHeader(r.sampleRate, 0)); err != nil {
		_ = f.Close()
		return errorsx.Wrap(err, errorsx.ReasonRecordingStart)
	}
	r.f = f
	r.started = true
	return nil
}

func (r *WAVRecorder) Write(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.finalized {
		return errors.New("recorder not active")
	}
	n, err := r.f.Write(pcm)
	r.dataLen += uint32(n)
	return err
}

func (r *WAVRecorder) Finalize() (Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return Ref{}, errors.New("recorder not started")
	}
	if r.finalized {
		return Ref{}, errors.New("recorder already finalized")
	}
	r.finalized = true

	if _, err := r.f.WriteAt(encodeHeader(r.sampleRate, r.dataLen), 0); err != nil {
		_ = r.f.Close()
		return Ref{}, errorsx.Wrap(err, errorsx.ReasonRecordingFinalize)
	}
	if err := r.f.Close(); err != nil {
		return Ref{}, errorsx.Wrap(err, errorsx.ReasonRecordingFinalize)
	}
	return Ref{ID: r.id, Path: r.path}, nil
}

// encodeHeader renders the 44-byte canonical WAV header for mono PCM16.
func encodeHeader(sampleRate int, dataSize uint32) []byte {
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	buf := bytes.NewBuffer(make([]byte, 0, 44))
	_ = binary.Write(buf, binary.LittleEndian, header)
	return buf.Bytes()
}

// NullRecorder satisfies Recorder for sessions that opt out of recording.
type NullRecorder struct {
	mu        sync.Mutex
	started   bool
	finalized bool
}

func (n *NullRecorder) Name() string { return "null" }

func (n *NullRecorder) Start() error {
	n.mu.Lock()
	n.started = true
	n.mu.Unlock()
	return nil
}

func (n *NullRecorder) Write([]byte) error { return nil }

func (n *NullRecorder) Finalize() (Ref, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started || n.finalized {
		return Ref{}, errors.New("recorder not active")
	}
	n.finalized = true
	return Ref{}, nil
}
