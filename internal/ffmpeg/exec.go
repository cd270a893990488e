package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// maxDiagnosticLines bounds how much FFmpeg output is carried in errors.
const maxDiagnosticLines = 6

// Executor invokes the FFmpeg binary for the two jobs the separator needs:
// reading the version banner and converting arbitrary inputs to WAV.
type Executor struct {
	runner commandRunner
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithCommandRunner sets the process runner (for testing).
func WithCommandRunner(r commandRunner) ExecutorOption {
	return func(e *Executor) { e.runner = r }
}

// NewExecutor creates an Executor backed by os/exec unless overridden.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{runner: osCommandRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Version returns the raw "ffmpeg -version" banner. Output is returned even
// on failure because some builds exit non-zero after printing it.
func (e *Executor) Version(ctx context.Context, ffmpegPath string) (string, error) {
	out, err := e.runner.CombinedOutput(ctx, ffmpegPath, []string{"-version"})
	return string(out), err
}

// ToWAV converts input into a 32-bit PCM WAV at output. The source channel
// layout and sample rate are preserved.
func (e *Executor) ToWAV(ctx context.Context, ffmpegPath, input, output string) error {
	out, err := e.runner.CombinedOutput(ctx, ffmpegPath, toWAVArgs(input, output))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if tail := tailLines(string(out), maxDiagnosticLines); tail != "" {
		return fmt.Errorf("%w: %v: %s", ErrTranscodeFailed, err, tail)
	}
	return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
}

// toWAVArgs uses pcm_s32le rather than float: FFmpeg writes an extensible
// header for float WAV with more than two channels.
func toWAVArgs(input, output string) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vn",
		"-c:a", "pcm_s32le",
		"-f", "wav",
		output,
	}
}

// tailLines keeps the last n non-blank lines of s, joined by "; ".
func tailLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
