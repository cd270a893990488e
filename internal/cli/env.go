package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-separate/internal/audio"
	"github.com/alnah/go-separate/internal/config"
	"github.com/alnah/go-separate/internal/ffmpeg"
	"github.com/alnah/go-separate/internal/separate"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Stop is closed to end a run at the next chunk boundary (nil: never).
	Stop <-chan struct{}

	// Factories for domain objects
	FFmpegResolver FFmpegResolver
	ConfigLoader   ConfigLoader
	ModelFactory   ModelFactory
	DecoderFactory DecoderFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, log zerolog.Logger)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// ModelFactory creates separation models bound to a service URL.
type ModelFactory interface {
	NewModel(serverURL, apiKey string, log zerolog.Logger) (separate.Model, error)
}

// Decoder loads audio files into memory.
type Decoder interface {
	Decode(ctx context.Context, path string) (audio.Waveform, error)
}

// DecoderFactory creates decoders. An empty ffmpegPath means WAV only.
type DecoderFactory interface {
	NewDecoder(ffmpegPath string) Decoder
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) { e.Now = fn }
}

// WithStop sets the graceful stop channel.
func WithStop(stop <-chan struct{}) EnvOption {
	return func(e *Env) { e.Stop = stop }
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithModelFactory sets the model factory.
func WithModelFactory(f ModelFactory) EnvOption {
	return func(e *Env) { e.ModelFactory = f }
}

// WithDecoderFactory sets the decoder factory.
func WithDecoderFactory(f DecoderFactory) EnvOption {
	return func(e *Env) { e.DecoderFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Getenv:         os.Getenv,
		Now:            time.Now,
		FFmpegResolver: &defaultFFmpegResolver{},
		ConfigLoader:   &defaultConfigLoader{},
		ModelFactory:   &defaultModelFactory{},
		DecoderFactory: &defaultDecoderFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.NewResolver().Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, log zerolog.Logger) {
	ffmpeg.NewVersionChecker(nil, log).Check(ctx, ffmpegPath)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultModelFactory builds an HTTPModel for the separation service.
type defaultModelFactory struct{}

func (defaultModelFactory) NewModel(serverURL, apiKey string, log zerolog.Logger) (separate.Model, error) {
	return separate.NewHTTPModel(serverURL, apiKey, separate.WithLogger(log))
}

type defaultDecoderFactory struct{}

func (defaultDecoderFactory) NewDecoder(ffmpegPath string) Decoder {
	if ffmpegPath == "" {
		return audio.NewDecoder()
	}
	return audio.NewDecoder(audio.WithFFmpegPath(ffmpegPath))
}

// Compile-time interface verification.
var (
	_ FFmpegResolver = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader   = (*defaultConfigLoader)(nil)
	_ ModelFactory   = (*defaultModelFactory)(nil)
	_ DecoderFactory = (*defaultDecoderFactory)(nil)
	_ Decoder        = (*audio.Decoder)(nil)
)
