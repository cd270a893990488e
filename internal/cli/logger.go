package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// envLogLevel overrides the default log level (debug, info, warn, error).
const envLogLevel = "LOG_LEVEL"

// newLogger builds the console logger for a run.
// verbose forces debug; otherwise LOG_LEVEL is honoured and info is the default.
func newLogger(env *Env, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(env.Getenv(envLogLevel)); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{
		Out:        env.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    !shouldColorize(env.Stderr),
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// shouldColorize reports whether w is a terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
