package ffmpeg

import "errors"

var (
	// ErrNotFound indicates the FFmpeg binary could not be located.
	ErrNotFound = errors.New("ffmpeg not found")

	// ErrTranscodeFailed indicates FFmpeg exited without producing a usable WAV.
	ErrTranscodeFailed = errors.New("ffmpeg transcode failed")
)
