package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/alnah/go-separate/internal/apierr"
	"github.com/alnah/go-separate/internal/audio"
	"github.com/alnah/go-separate/internal/cli"
	"github.com/alnah/go-separate/internal/config"
	"github.com/alnah/go-separate/internal/ffmpeg"
	"github.com/alnah/go-separate/internal/interrupt"
	"github.com/alnah/go-separate/internal/separate"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitSeparation = 5
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C stops at the next chunk boundary, the second cancels ctx.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	env := cli.NewEnv(cli.WithStop(handler.StopRequested()))

	rootCmd := cli.SeparateCmd(env)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	// Silence Cobra's default error/usage printing; we handle it ourselves.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		handler.Stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3). Checked before validation: an unsupported
	// format caused by a missing FFmpeg is an installation problem.
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, separate.ErrServerURLMissing) ||
		errors.Is(err, cli.ErrOutputLocked) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, config.ErrNotDirectory) || errors.Is(err, config.ErrNotWritable) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, audio.ErrFileNotFound) || errors.Is(err, audio.ErrUnsupportedFormat) ||
		errors.Is(err, audio.ErrDecodeFailed) || errors.Is(err, audio.ErrEmptyAudio) ||
		errors.Is(err, audio.ErrInvalidChunkDuration) || errors.Is(err, cli.ErrInvalidRerank) ||
		errors.Is(err, cli.ErrInvalidChunkSeconds) || errors.Is(err, separate.ErrInvalidJob) ||
		errors.Is(err, separate.ErrEmptyDescription) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, config.ErrInvalidValue) {
		return ExitValidation
	}

	// Separation errors (ExitSeparation = 5).
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrBadRequest) ||
		errors.Is(err, separate.ErrInvalidResponse) || errors.Is(err, separate.ErrModelNotLoaded) ||
		errors.Is(err, separate.ErrBatchMismatch) {
		return ExitSeparation
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
