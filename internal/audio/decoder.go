package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-separate/internal/ffmpeg"
)

// Decoder loads audio files of any format FFmpeg understands into memory.
// Plain WAV files are decoded natively; everything else, and WAV variants
// the native decoder rejects, is transcoded to a temporary 32-bit WAV that
// keeps the source channels and sample rate.
type Decoder struct {
	ffmpegPath string

	// Injectable dependencies (defaults to OS implementations).
	wav     wavTranscoder
	tempDir tempDirCreator
	files   fileRemover
	stat    fileStatter
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithFFmpegPath enables the FFmpeg fallback for non-WAV inputs.
func WithFFmpegPath(path string) DecoderOption {
	return func(d *Decoder) { d.ffmpegPath = path }
}

// WithDecoderTranscoder sets the FFmpeg front end used for non-WAV inputs.
func WithDecoderTranscoder(t wavTranscoder) DecoderOption {
	return func(d *Decoder) { d.wav = t }
}

// WithDecoderTempDir sets the temp directory creator.
func WithDecoderTempDir(t tempDirCreator) DecoderOption {
	return func(d *Decoder) { d.tempDir = t }
}

// WithDecoderFileRemover sets the file remover used for temp cleanup.
func WithDecoderFileRemover(f fileRemover) DecoderOption {
	return func(d *Decoder) { d.files = f }
}

// WithDecoderFileStatter sets the file statter used to check inputs.
func WithDecoderFileStatter(s fileStatter) DecoderOption {
	return func(d *Decoder) { d.stat = s }
}

// NewDecoder creates a Decoder. Without WithFFmpegPath only WAV is supported.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		wav:     ffmpeg.NewExecutor(),
		tempDir: osTempDirCreator{},
		files:   osFileRemover{},
		stat:    osFileStatter{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads path at its native sample rate and channel layout.
func (d *Decoder) Decode(ctx context.Context, path string) (Waveform, error) {
	if _, err := d.stat.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Waveform{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Waveform{}, fmt.Errorf("cannot access %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".wav" {
		w, err := decodeWAVFile(path)
		switch {
		case err == nil:
			return nonEmpty(w, path)
		case d.ffmpegPath == "":
			return Waveform{}, fmt.Errorf("%s: %w", path, err)
		}
		// Fall through: FFmpeg handles WAV flavours such as 64-bit float or A-law.
	} else if d.ffmpegPath == "" {
		return Waveform{}, fmt.Errorf("%w: %s requires FFmpeg: %w", ErrUnsupportedFormat, ext, ffmpeg.ErrNotFound)
	}

	w, err := d.transcode(ctx, path)
	if err != nil {
		return Waveform{}, err
	}
	return nonEmpty(w, path)
}

// transcode converts path to a temporary WAV with FFmpeg and decodes it.
func (d *Decoder) transcode(ctx context.Context, path string) (Waveform, error) {
	dir, err := d.tempDir.MkdirTemp("", "go-separate-*")
	if err != nil {
		return Waveform{}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = d.files.RemoveAll(dir) }() // best-effort cleanup

	out := filepath.Join(dir, "decoded.wav")
	if err := d.wav.ToWAV(ctx, d.ffmpegPath, path, out); err != nil {
		if errors.Is(err, ffmpeg.ErrTranscodeFailed) {
			return Waveform{}, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
		}
		return Waveform{}, err
	}

	w, err := decodeWAVFile(out)
	if err != nil {
		return Waveform{}, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func decodeWAVFile(path string) (Waveform, error) {
	// #nosec G304 -- path is the user's input file or our own temp file
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeWAV(f)
}

func nonEmpty(w Waveform, path string) (Waveform, error) {
	if w.Frames() == 0 {
		return Waveform{}, fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}
	return w, nil
}
