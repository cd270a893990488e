package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags from the fmt chunk.
const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// Encoding selects the sample representation written by WriteWAV.
type Encoding int

const (
	// EncodingPCM16 writes 16-bit signed integers, clipping to [-1, 1].
	EncodingPCM16 Encoding = iota
	// EncodingFloat32 writes 32-bit IEEE floats without loss.
	EncodingFloat32
)

// String returns the encoding name used in logs.
func (e Encoding) String() string {
	switch e {
	case EncodingPCM16:
		return "pcm16"
	case EncodingFloat32:
		return "float32"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// DecodeWAV reads an entire WAV stream into a Waveform at its native rate
// and channel layout. Integer PCM is normalised to [-1, 1]; 32-bit float
// data is reinterpreted bit for bit.
func DecodeWAV(r io.ReadSeeker) (Waveform, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("%w: not a valid WAV stream", ErrDecodeFailed)
	}

	tag := int(dec.WavAudioFormat)
	bits := int(dec.BitDepth)
	isFloat := tag == wavFormatIEEEFloat
	switch {
	case tag != wavFormatPCM && tag != wavFormatIEEEFloat && tag != wavFormatExtensible:
		return Waveform{}, fmt.Errorf("%w: WAV format tag %#x", ErrDecodeFailed, tag)
	case isFloat && bits != 32:
		return Waveform{}, fmt.Errorf("%w: %d-bit float WAV", ErrDecodeFailed, bits)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return Waveform{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if buf == nil {
		return Waveform{}, fmt.Errorf("%w: no PCM data", ErrDecodeFailed)
	}

	samples := make([]float32, len(buf.Data))
	if isFloat {
		for i, v := range buf.Data {
			samples[i] = math.Float32frombits(uint32(v))
		}
	} else {
		for i, v := range buf.Data {
			samples[i] = intToFloat(v, bits)
		}
	}

	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	if buf.Format != nil {
		if channels == 0 {
			channels = buf.Format.NumChannels
		}
		if rate == 0 {
			rate = buf.Format.SampleRate
		}
	}
	if channels <= 0 || rate <= 0 {
		return Waveform{}, fmt.Errorf("%w: missing channel count or sample rate", ErrDecodeFailed)
	}

	return Waveform{Samples: samples, Channels: channels, SampleRate: rate}, nil
}

// intToFloat normalises a decoded integer sample of the given bit depth.
// 8-bit WAV is unsigned; wider depths are signed and sign-extended here
// because the decoder may return the raw little-endian pattern.
func intToFloat(v, bits int) float32 {
	if bits <= 8 {
		return float32(v&0xFF-128) / 128
	}
	shift := 64 - bits
	signed := int64(v) << shift >> shift
	return float32(float64(signed) / float64(int64(1)<<(bits-1)))
}

// pcm16 converts a float sample to a clipped 16-bit integer.
func pcm16(v float32) int {
	s := math.Round(float64(v) * 32768)
	return int(max(-32768, min(32767, s)))
}

// WriteWAV writes samples (interleaved when channels > 1) to path,
// replacing any existing file.
func WriteWAV(path string, samples []float32, sampleRate, channels int, enc Encoding) (err error) {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid WAV layout: %d Hz, %d channels", sampleRate, channels)
	}

	var bitDepth, tag int
	data := make([]int, len(samples))
	switch enc {
	case EncodingPCM16:
		bitDepth, tag = 16, wavFormatPCM
		for i, v := range samples {
			data[i] = pcm16(v)
		}
	case EncodingFloat32:
		bitDepth, tag = 32, wavFormatIEEEFloat
		for i, v := range samples {
			data[i] = int(math.Float32bits(v))
		}
	default:
		return fmt.Errorf("unknown WAV encoding %v", enc)
	}

	// #nosec G304 -- path is built from the user's output prefix
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	e := wav.NewEncoder(f, sampleRate, bitDepth, channels, tag)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := e.Write(buf); err != nil {
		_ = e.Close() // best-effort; the write error is what matters
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}
