package recording

import (
	"encoding/binary"
	"os"
	"testing"
)

func TestWAVRecorderLifecycle(t *testing.T) {
	dir := t.TempDir()
	r := NewWAVRecorder(dir, 16000)

	if err := r.Write([]byte{1, 2}); err == nil {
		t.Fatal("write before start should fail")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	pcm := []byte{0x00, 0x01, 0x02, 0x03}
	if err := r.Write(pcm); err != nil {
		t.Fatalf("write: %v", err)
	}

	ref, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if ref.ID == "" || ref.Path == "" {
		t.Fatalf("incomplete ref: %+v", ref)
	}

	data, err := os.ReadFile(ref.Path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if len(data) != 44+len(pcm) {
		t.Fatalf("file size = %d, want %d", len(data), 44+len(pcm))
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q %q", data[:4], data[8:12])
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Fatalf("bits per sample = %d, want 16", bits)
	}
	if dataSize := binary.LittleEndian.Uint32(data[40:44]); dataSize != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", dataSize, len(pcm))
	}

	if _, err := r.Finalize(); err == nil {
		t.Fatal("second finalize should fail")
	}
	if err := r.Write(pcm); err == nil {
		t.Fatal("write after finalize should fail")
	}
}

func TestWAVRecorderStreamsToDisk(t *testing.T) {
	dir := t.TempDir()
	r := NewWAVRecorder(dir, 16000)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Samples must land in the file as they arrive, not at finalize.
	frame := make([]byte, 640)
	for i := 0; i < 10; i++ {
		if err := r.Write(frame); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	info, err := os.Stat(r.path)
	if err != nil {
		t.Fatalf("stat before finalize: %v", err)
	}
	if want := int64(44 + 10*len(frame)); info.Size() != want {
		t.Fatalf("file size before finalize = %d, want %d", info.Size(), want)
	}

	ref, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if dataSize := binary.LittleEndian.Uint32(data[40:44]); dataSize != uint32(10*len(frame)) {
		t.Fatalf("patched data size = %d, want %d", dataSize, 10*len(frame))
	}
	if riffSize := binary.LittleEndian.Uint32(data[4:8]); riffSize != uint32(36+10*len(frame)) {
		t.Fatalf("patched riff size = %d, want %d", riffSize, 36+10*len(frame))
	}
}

func TestNullRecorder(t *testing.T) {
	var r NullRecorder
	if _, err := r.Finalize(); err == nil {
		t.Fatal("finalize before start should fail")
	}
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Write([]byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ref, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if ref.ID != "" || ref.Path != "" {
		t.Fatalf("null recorder produced ref: %+v", ref)
	}
}
