package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-separate/internal/audio"
	"github.com/alnah/go-separate/internal/config"
)

// testSampleRate is the rate used by decoded fixtures and the mock model.
const testSampleRate = 16000

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	modelFactory   *mockModelFactory
	decoderFactory *mockDecoderFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		modelFactory:   &mockModelFactory{},
		decoderFactory: &mockDecoderFactory{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	now    func() time.Time
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestStdout(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stdout = w }
}

func withTestStderr(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stderr = w }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestMocks(m *testMocks) testEnvOption {
	return func(o *testEnvOptions) { o.mocks = m }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		getenv: staticEnv(nil),
		now:    fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		mocks:  newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stdout:         options.stdout,
		Stderr:         options.stderr,
		Getenv:         options.getenv,
		Now:            options.now,
		FFmpegResolver: options.mocks.ffmpegResolver,
		ConfigLoader:   options.mocks.configLoader,
		ModelFactory:   options.mocks.modelFactory,
		DecoderFactory: options.mocks.decoderFactory,
	}

	return env, options.mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// testCmd returns a cobra command carrying ctx, as RunE would receive it.
func testCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	return cmd
}

// rampWaveform returns n mono samples rising from 0 towards 1.
func rampWaveform(n, sampleRate int) audio.Waveform {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i) / float32(n)
	}
	return audio.Waveform{Samples: samples, Channels: 1, SampleRate: sampleRate}
}

// createTestWAV writes a short 16-bit mono WAV and returns its path.
func createTestWAV(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w := rampWaveform(testSampleRate/2, testSampleRate)
	if err := audio.WriteWAV(path, w.Samples, w.SampleRate, 1, audio.EncodingPCM16); err != nil {
		t.Fatalf("failed to create test WAV: %v", err)
	}
	return path
}

// readWAV decodes a WAV produced by a run.
func readWAV(t *testing.T, path string) audio.Waveform {
	t.Helper()
	f, err := os.Open(path) // #nosec G304 -- test output under t.TempDir()
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	w, err := audio.DecodeWAV(f)
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return w
}

// configWith returns a ConfigLoader that returns cfg.
func configWith(cfg config.Config) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return cfg, nil
		},
	}
}
