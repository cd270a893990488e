// Package audio decodes, chunks and encodes PCM waveforms.
package audio

import (
	"time"

	"github.com/alnah/go-separate/internal/format"
)

// Waveform is a block of PCM audio held in memory as float32 samples.
// Multi-channel audio is interleaved frame by frame.
type Waveform struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (samples per channel).
func (w Waveform) Frames() int {
	if w.Channels <= 1 {
		return len(w.Samples)
	}
	return len(w.Samples) / w.Channels
}

// Duration returns the playback length of the waveform.
func (w Waveform) Duration() time.Duration {
	return format.SampleDuration(w.Frames(), w.SampleRate)
}

// Mono collapses the waveform to a single channel by averaging each frame.
// A waveform that is already mono is returned unchanged.
func (w Waveform) Mono() Waveform {
	if w.Channels <= 1 {
		return Waveform{Samples: w.Samples, Channels: 1, SampleRate: w.SampleRate}
	}

	frames := w.Frames()
	out := make([]float32, frames)
	inv := 1 / float32(w.Channels)
	for i := range frames {
		var sum float32
		frame := w.Samples[i*w.Channels : (i+1)*w.Channels]
		for _, s := range frame {
			sum += s
		}
		out[i] = sum * inv
	}
	return Waveform{Samples: out, Channels: 1, SampleRate: w.SampleRate}
}
