package audio

import (
	"fmt"
	"time"

	"github.com/alnah/go-separate/internal/format"
)

// DefaultChunkDuration is the nominal length of each chunk fed to the model.
const DefaultChunkDuration = 10 * time.Second

// Chunk is a contiguous mono slice of a waveform.
// Samples aliases the source waveform and must not be modified.
type Chunk struct {
	Index      int       // Zero-based position in the source.
	Offset     int       // Index of the first sample in the source.
	Samples    []float32 // Mono samples.
	SampleRate int
}

// StartTime returns the chunk's start position in the source audio.
func (c Chunk) StartTime() time.Duration {
	return format.SampleDuration(c.Offset, c.SampleRate)
}

// EndTime returns the chunk's end position in the source audio.
func (c Chunk) EndTime() time.Duration {
	return format.SampleDuration(c.Offset+len(c.Samples), c.SampleRate)
}

// Duration returns the length of this chunk.
func (c Chunk) Duration() time.Duration {
	return format.SampleDuration(len(c.Samples), c.SampleRate)
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(c.StartTime()),
		format.Duration(c.EndTime()))
}

// FixedChunker splits a waveform into consecutive fixed-duration chunks
// without overlap. Every chunk has the nominal length except possibly the last.
type FixedChunker struct {
	duration time.Duration
}

// NewFixedChunker creates a FixedChunker. A zero duration selects
// DefaultChunkDuration; a negative one is rejected.
func NewFixedChunker(duration time.Duration) (*FixedChunker, error) {
	if duration < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunkDuration, duration)
	}
	if duration == 0 {
		duration = DefaultChunkDuration
	}
	return &FixedChunker{duration: duration}, nil
}

// Duration returns the nominal chunk duration.
func (fc *FixedChunker) Duration() time.Duration {
	return fc.duration
}

// ChunkLen returns the number of samples per full chunk at sampleRate.
func (fc *FixedChunker) ChunkLen(sampleRate int) int {
	return int(fc.duration.Seconds() * float64(sampleRate))
}

// Split collapses w to mono and partitions it into chunks ordered by position.
// An input shorter than one chunk yields exactly one chunk holding all of it.
func (fc *FixedChunker) Split(w Waveform) ([]Chunk, error) {
	mono := w.Mono()
	n := len(mono.Samples)
	if n == 0 {
		return nil, ErrEmptyAudio
	}

	size := fc.ChunkLen(mono.SampleRate)
	if size <= 0 {
		return nil, fmt.Errorf("%w: %v at %d Hz yields no samples",
			ErrInvalidChunkDuration, fc.duration, mono.SampleRate)
	}

	chunks := make([]Chunk, 0, (n+size-1)/size)
	for i, start := 0, 0; start < n; i, start = i+1, start+size {
		end := min(start+size, n)
		chunks = append(chunks, Chunk{
			Index:      i,
			Offset:     start,
			Samples:    mono.Samples[start:end],
			SampleRate: mono.SampleRate,
		})
	}
	return chunks, nil
}

// Concat joins sample sequences in order into a single new slice.
func Concat(parts [][]float32) []float32 {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]float32, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
