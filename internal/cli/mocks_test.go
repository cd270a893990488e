package cli

import (
	"bytes"
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alnah/go-separate/internal/audio"
	"github.com/alnah/go-separate/internal/config"
	"github.com/alnah/go-separate/internal/separate"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	CheckVersionFunc func(ctx context.Context, ffmpegPath string)

	mu                sync.Mutex
	resolveCalls      int
	checkVersionCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, _ zerolog.Logger) {
	m.mu.Lock()
	m.checkVersionCalls++
	m.mu.Unlock()

	if m.CheckVersionFunc != nil {
		m.CheckVersionFunc(ctx, ffmpegPath)
	}
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

func (m *mockFFmpegResolver) CheckVersionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkVersionCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock ModelFactory + Model
// ---------------------------------------------------------------------------

type modelCall struct {
	ServerURL string
	APIKey    string
}

type mockModelFactory struct {
	NewModelErr error

	mu        sync.Mutex
	calls     []modelCall
	mockModel *mockModel
}

func (m *mockModelFactory) NewModel(serverURL, apiKey string, _ zerolog.Logger) (separate.Model, error) {
	m.mu.Lock()
	m.calls = append(m.calls, modelCall{ServerURL: serverURL, APIKey: apiKey})
	if m.mockModel == nil {
		m.mockModel = &mockModel{}
	}
	model := m.mockModel
	m.mu.Unlock()

	if m.NewModelErr != nil {
		return nil, m.NewModelErr
	}
	return model, nil
}

func (m *mockModelFactory) Calls() []modelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]modelCall(nil), m.calls...)
}

// Model returns the model handed out by NewModel (created on demand).
func (m *mockModelFactory) Model() *mockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mockModel == nil {
		m.mockModel = &mockModel{}
	}
	return m.mockModel
}

// mockModel echoes each uploaded chunk as the target and silence as the residual.
type mockModel struct {
	LoadFunc     func(ctx context.Context, opts separate.LoadOptions) (separate.ModelInfo, error)
	SeparateFunc func(ctx context.Context, in *separate.Inputs, opts separate.Options) (*separate.Result, error)

	mu           sync.Mutex
	loadOpts     []separate.LoadOptions
	separateOpts []separate.Options
	descriptions []string
	releaseCalls int
}

func (m *mockModel) Load(ctx context.Context, opts separate.LoadOptions) (separate.ModelInfo, error) {
	m.mu.Lock()
	m.loadOpts = append(m.loadOpts, opts)
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, opts)
	}
	return separate.ModelInfo{
		Model:       opts.Model,
		DTypeBefore: "float32",
		DType:       opts.DType,
		Device:      opts.Device,
		SampleRate:  testSampleRate,
	}, nil
}

func (m *mockModel) Separate(ctx context.Context, in *separate.Inputs, opts separate.Options) (*separate.Result, error) {
	m.mu.Lock()
	m.separateOpts = append(m.separateOpts, opts)
	m.descriptions = append(m.descriptions, in.Descriptions...)
	m.mu.Unlock()

	if m.SeparateFunc != nil {
		return m.SeparateFunc(ctx, in, opts)
	}
	w, err := audio.DecodeWAV(bytes.NewReader(in.Audio[0].Data))
	if err != nil {
		return nil, err
	}
	return &separate.Result{
		SampleRate: w.SampleRate,
		Target:     [][]float32{w.Samples},
		Residual:   [][]float32{make([]float32, len(w.Samples))},
	}, nil
}

func (m *mockModel) ReleaseCache(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	return nil
}

func (m *mockModel) LoadOpts() []separate.LoadOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]separate.LoadOptions(nil), m.loadOpts...)
}

func (m *mockModel) SeparateOpts() []separate.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]separate.Options(nil), m.separateOpts...)
}

func (m *mockModel) Descriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.descriptions...)
}

func (m *mockModel) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls
}

// ---------------------------------------------------------------------------
// Mock DecoderFactory + Decoder
// ---------------------------------------------------------------------------

type mockDecoderFactory struct {
	mu          sync.Mutex
	ffmpegPaths []string
	mockDecoder *mockDecoder
}

func (m *mockDecoderFactory) NewDecoder(ffmpegPath string) Decoder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ffmpegPaths = append(m.ffmpegPaths, ffmpegPath)
	if m.mockDecoder == nil {
		m.mockDecoder = &mockDecoder{}
	}
	return m.mockDecoder
}

func (m *mockDecoderFactory) FFmpegPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ffmpegPaths...)
}

// mockDecoder returns Wave, or a 2.5 s mono ramp at testSampleRate.
type mockDecoder struct {
	Wave *audio.Waveform
	Err  error

	mu    sync.Mutex
	paths []string
}

func (m *mockDecoder) Decode(_ context.Context, path string) (audio.Waveform, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.Err != nil {
		return audio.Waveform{}, m.Err
	}
	if m.Wave != nil {
		return *m.Wave, nil
	}
	return rampWaveform(testSampleRate*5/2, testSampleRate), nil
}

func (m *mockDecoder) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// Compile-time interface checks.
var (
	_ FFmpegResolver = (*mockFFmpegResolver)(nil)
	_ ConfigLoader   = (*mockConfigLoader)(nil)
	_ ModelFactory   = (*mockModelFactory)(nil)
	_ DecoderFactory = (*mockDecoderFactory)(nil)
	_ Decoder        = (*mockDecoder)(nil)
	_ separate.Model = (*mockModel)(nil)
)
