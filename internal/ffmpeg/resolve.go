package ffmpeg

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// envFFmpegPath overrides PATH lookup.
	envFFmpegPath = "FFMPEG_PATH"

	// minFFmpegMajorVersion is the oldest release whose pcm_s32le WAV output we rely on.
	minFFmpegMajorVersion = 4
)

// Resolver locates the FFmpeg binary. FFmpeg is only needed to decode
// inputs that are not plain WAV, so callers usually treat ErrNotFound as
// "WAV only" rather than a fatal error.
type Resolver struct {
	files fileStatter
	env   envProvider
	goos  string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.files = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS (for testing install instructions).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with production defaults.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		files: osFileStatter{},
		env:   osEnvProvider{},
		goos:  runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	if envPath := r.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := r.files.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but the binary does not exist",
				ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `FFmpeg is required for non-WAV inputs. Install it with:
  brew install ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "linux":
		return `FFmpeg is required for non-WAV inputs. Install it with:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "windows":
		return `FFmpeg is required for non-WAV inputs. Install it with:
  winget install ffmpeg

Or set FFMPEG_PATH to your ffmpeg.exe.`
	default:
		return `FFmpeg is required for non-WAV inputs. Download it from https://ffmpeg.org/download.html
Or set FFMPEG_PATH to your ffmpeg binary.`
	}
}

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	log      zerolog.Logger
}

// NewVersionChecker creates a VersionChecker that reports through log.
func NewVersionChecker(executor *Executor, log zerolog.Logger) *VersionChecker {
	if executor == nil {
		executor = NewExecutor()
	}
	return &VersionChecker{executor: executor, log: log}
}

// Check logs a warning if ffmpeg is older than the supported minimum.
// Returns the detected major version, or 0 if it could not be parsed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) int {
	output, err := vc.executor.Version(ctx, ffmpegPath)
	if err != nil && output == "" {
		return 0
	}

	major := parseMajorVersion(output)
	if major == 0 {
		vc.log.Debug().Str("ffmpeg", ffmpegPath).Msg("could not parse ffmpeg version")
		return 0
	}
	if major < minFFmpegMajorVersion {
		vc.log.Warn().
			Int("version", major).
			Int("recommended", minFFmpegMajorVersion).
			Msg("ffmpeg is older than recommended")
	}
	return major
}

// parseMajorVersion extracts N from banners like "ffmpeg version 6.1.1" or "ffmpeg version n6.1".
func parseMajorVersion(output string) int {
	first, _, _ := strings.Cut(output, "\n")
	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major
	}
	return 0
}
