// Package presence provides the advisory candidate-attention signal. It is
// independent of the audio protocol and must never gate audio correctness.
package presence

import "github.com/nareswara/intervox/pkg/frames"

// Detector decides whether a candidate appears present in a sampled camera
// frame.
type Detector interface {
	DetectPresence(frame frames.ImageFrame) bool
}

// LumaDetector is the heuristic brightness fallback: a frame counts as
// present when its mean luma sits inside a plausible range. Fully dark or
// fully blown-out frames read as absent (covered lens, empty chair against
// a bright window).
type LumaDetector struct {
	MinMean float64
	MaxMean float64
}

func NewLumaDetector() *LumaDetector {
	return &LumaDetector{MinMean: 18, MaxMean: 240}
}

func (d *LumaDetector) DetectPresence(frame frames.ImageFrame) bool {
	data := frame.RawPayload()
	if len(data) == 0 {
		return false
	}
	var sum float64
	var count int
	switch frame.MIME() {
	case "image/rgba":
		for i := 0; i+3 < len(data); i += 4 {
			// ITU-R BT.601 luma weights.
			sum += 0.299*float64(data[i]) + 0.587*float64(data[i+1]) + 0.114*float64(data[i+2])
			count++
		}
	default:
		// Treat anything else as a grayscale plane.
		for _, b := range data {
			sum += float64(b)
		}
		count = len(data)
	}
	if count == 0 {
		return false
	}
	mean := sum / float64(count)
	return mean >= d.MinMean && mean <= d.MaxMean
}

// StaticDetector always reports the configured value. Used when no camera
// feed exists.
type StaticDetector bool

func (s StaticDetector) DetectPresence(frames.ImageFrame) bool { return bool(s) }
