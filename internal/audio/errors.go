package audio

import "errors"

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrUnsupportedFormat indicates the input cannot be decoded without FFmpeg.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrDecodeFailed indicates the input could not be decoded.
var ErrDecodeFailed = errors.New("audio decoding failed")

// ErrEmptyAudio indicates the decoded waveform contains no frames.
var ErrEmptyAudio = errors.New("audio contains no samples")

// ErrInvalidChunkDuration indicates a chunk duration that yields no samples.
var ErrInvalidChunkDuration = errors.New("invalid chunk duration")
