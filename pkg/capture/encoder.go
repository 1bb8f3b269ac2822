package capture

import (
	"encoding/base64"
	"fmt"

	"github.com/nareswara/intervox/pkg/channel"
	"github.com/nareswara/intervox/pkg/frames"
)

// DefaultSourceRate is the capture-side sample rate in Hz.
const DefaultSourceRate = 16000

// Encoder converts captured float frames into wire frames: PCM16 LE bytes,
// base64-framed for the text-safe transport. One frame in, one frame out,
// no buffering in between.
type Encoder struct {
	streamID string
	rate     int
	pts      *frames.PTSGen
}

func NewEncoder(streamID string, rate int) *Encoder {
	if rate <= 0 {
		rate = DefaultSourceRate
	}
	return &Encoder{
		streamID: streamID,
		rate:     rate,
		pts:      frames.NewPTSGen(),
	}
}

func (e *Encoder) Rate() int { return e.rate }

// Encode converts one float frame to a PCM16 audio frame.
func (e *Encoder) Encode(samples []float32) frames.AudioFrame {
	pcm := PCM16FromFloat32(samples)
	return frames.NewAudioFrameFromPool(e.streamID, e.pts.Next(e.streamID), pcm, e.rate, 1, nil)
}

// Wire serializes an audio frame into its outbound wire encoding.
func (e *Encoder) Wire(f frames.AudioFrame) channel.WireFrame {
	return channel.WireFrame{
		Data:     base64.StdEncoding.EncodeToString(f.RawPayload()),
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", f.Rate()),
	}
}

// PCM16FromFloat32 scales float samples in [-1, 1] to signed 16-bit
// little-endian. Linear scaling by 32768, no clipping guard.
func PCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := int16(s * 32768)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// Float32FromPCM16 is the inverse conversion, used by the browser bridge
// when a client ships PCM16 instead of float frames.
func Float32FromPCM16(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		out[i] = float32(v) / 32768
	}
	return out
}
