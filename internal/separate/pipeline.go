package separate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-separate/internal/audio"
	"github.com/alnah/go-separate/internal/format"
)

// defaultReleaseTimeout bounds a cache release that runs after cancellation.
const defaultReleaseTimeout = 5 * time.Second

// Output file suffixes appended to the job's output prefix.
const (
	suffixTarget    = "_target.wav"
	suffixResidual  = "_residual.wav"
	suffixTempChunk = "__tmp_chunk.wav"
)

// TargetPath returns the path of the isolated-sound output for prefix.
func TargetPath(prefix string) string { return prefix + suffixTarget }

// ResidualPath returns the path of the everything-else output for prefix.
func ResidualPath(prefix string) string { return prefix + suffixResidual }

// TempChunkPath returns the scratch file reused for every chunk of a run.
func TempChunkPath(prefix string) string { return prefix + suffixTempChunk }

// Job is one separation request.
type Job struct {
	AudioPath           string
	Description         string
	OutputPrefix        string
	RerankingCandidates int
}

func (j Job) validate() error {
	switch {
	case strings.TrimSpace(j.AudioPath) == "":
		return fmt.Errorf("%w: audio path is required", ErrInvalidJob)
	case strings.TrimSpace(j.Description) == "":
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyDescription)
	case strings.TrimSpace(j.OutputPrefix) == "":
		return fmt.Errorf("%w: output prefix is required", ErrInvalidJob)
	case j.RerankingCandidates < 0:
		return fmt.Errorf("%w: reranking candidates must be >= 0, got %d", ErrInvalidJob, j.RerankingCandidates)
	}
	return nil
}

// ChunkReport describes the processing of one chunk.
type ChunkReport struct {
	Index           int
	Start           time.Duration
	End             time.Duration
	InputSamples    int
	TargetSamples   int
	ResidualSamples int
	Elapsed         time.Duration
}

// Report summarises a completed run.
type Report struct {
	Model            ModelInfo
	InputPath        string
	InputChannels    int
	InputSampleRate  int
	InputFrames      int
	OutputSampleRate int
	Chunks           []ChunkReport
	TargetPath       string
	ResidualPath     string
	TargetSamples    int
	ResidualSamples  int
	Elapsed          time.Duration
}

// Pipeline runs chunked separation of a single file on a single model.
// Chunks are processed strictly in order; a Pipeline is not safe for
// concurrent Run calls sharing an output prefix.
type Pipeline struct {
	model   Model
	decoder waveformDecoder
	chunker *audio.FixedChunker
	load    LoadOptions
	log     zerolog.Logger
	stop    <-chan struct{}

	// releaseTimeout bounds each cache release, which outlives cancellation.
	releaseTimeout time.Duration

	// Injectable dependencies (defaults to OS implementations).
	reader   fileReader
	files    fileRemover
	writeWAV wavWriter
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLoadOptions sets how the model is loaded.
func WithLoadOptions(o LoadOptions) PipelineOption {
	return func(p *Pipeline) { p.load = o }
}

// WithChunker sets the chunker (default: DefaultChunkDuration).
func WithChunker(c *audio.FixedChunker) PipelineOption {
	return func(p *Pipeline) { p.chunker = c }
}

// WithPipelineLogger sets the progress logger.
func WithPipelineLogger(l zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// WithStop sets a channel whose closing ends the run at the next chunk
// boundary with ErrStopped. The chunk in flight is allowed to finish.
func WithStop(stop <-chan struct{}) PipelineOption {
	return func(p *Pipeline) { p.stop = stop }
}

// WithReleaseTimeout bounds each cache release call (default 5s).
func WithReleaseTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.releaseTimeout = d }
}

// WithFileReader sets the reader used to load temp chunks for the processor.
func WithFileReader(r fileReader) PipelineOption {
	return func(p *Pipeline) { p.reader = r }
}

// WithFileRemover sets the remover used for temp chunk cleanup.
func WithFileRemover(f fileRemover) PipelineOption {
	return func(p *Pipeline) { p.files = f }
}

// WithWAVWriter overrides WAV encoding (for testing).
func WithWAVWriter(w wavWriter) PipelineOption {
	return func(p *Pipeline) { p.writeWAV = w }
}

// NewPipeline creates a Pipeline around a model and an audio decoder.
func NewPipeline(model Model, decoder waveformDecoder, opts ...PipelineOption) *Pipeline {
	chunker, _ := audio.NewFixedChunker(audio.DefaultChunkDuration) // default duration is valid
	p := &Pipeline{
		model:   model,
		decoder: decoder,
		chunker: chunker,
		load:    DefaultLoadOptions(""),
		log:     zerolog.Nop(),
		reader:  osFileReader{},

		releaseTimeout: defaultReleaseTimeout,
		files:          osFileRemover{},
		writeWAV:       audio.WriteWAV,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run separates job.AudioPath into <prefix>_target.wav and <prefix>_residual.wav.
//
// Model loading and input decoding run concurrently; a load failure is
// reported ahead of a decode failure. Each chunk is written
// to <prefix>__tmp_chunk.wav, prepared, separated, and the temp file and
// accelerator cache are released whether or not the chunk succeeded.
// Cancellation and stop requests are honoured between chunks.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Report, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		info               ModelInfo
		wave               audio.Waveform
		loadErr, decodeErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if info, loadErr = p.model.Load(gctx, p.load); loadErr != nil {
			loadErr = fmt.Errorf("loading model %s: %w", p.load.Model, loadErr)
		}
		return loadErr
	})
	g.Go(func() error {
		if wave, decodeErr = p.decoder.Decode(gctx, job.AudioPath); decodeErr != nil {
			decodeErr = fmt.Errorf("reading %s: %w", job.AudioPath, decodeErr)
		}
		return decodeErr
	})
	_ = g.Wait() // both errors are inspected below
	switch {
	case loadErr != nil && (decodeErr == nil || !errors.Is(loadErr, context.Canceled)):
		return nil, loadErr
	case decodeErr != nil:
		// Includes a load canceled because the decode failed first.
		return nil, decodeErr
	}

	p.log.Info().
		Str("model", info.Model).
		Str("dtype_before", info.DTypeBefore).
		Str("dtype", info.DType).
		Str("device", info.Device).
		Int("sample_rate", info.SampleRate).
		Msg("model loaded")

	proc, err := NewProcessor(info, WithProcessorFileReader(p.reader))
	if err != nil {
		return nil, err
	}

	chunks, err := p.chunker.Split(wave)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", job.AudioPath, err)
	}

	p.log.Info().
		Str("input", job.AudioPath).
		Int("channels", wave.Channels).
		Int("sample_rate", wave.SampleRate).
		Str("duration", format.Duration(wave.Duration())).
		Int("chunks", len(chunks)).
		Msg("input decoded")

	report := &Report{
		Model:            info,
		InputPath:        job.AudioPath,
		InputChannels:    wave.Channels,
		InputSampleRate:  wave.SampleRate,
		InputFrames:      wave.Frames(),
		OutputSampleRate: proc.SampleRate(),
		Chunks:           make([]ChunkReport, 0, len(chunks)),
		TargetPath:       TargetPath(job.OutputPrefix),
		ResidualPath:     ResidualPath(job.OutputPrefix),
	}

	tmp := TempChunkPath(job.OutputPrefix)
	targets := make([][]float32, 0, len(chunks))
	residuals := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-p.stop:
			return nil, fmt.Errorf("%w after %d of %d chunks", ErrStopped, c.Index, len(chunks))
		default:
		}

		p.log.Info().
			Int("chunk", c.Index+1).
			Int("of", len(chunks)).
			Str("span", format.Duration(c.StartTime())+"-"+format.Duration(c.EndTime())).
			Msg("separating")

		cr, target, residual, err := p.runChunk(ctx, proc, c, tmp, job)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		report.Chunks = append(report.Chunks, cr)
		targets = append(targets, target)
		residuals = append(residuals, residual)
	}

	target := audio.Concat(targets)
	residual := audio.Concat(residuals)
	if err := p.writeWAV(report.TargetPath, target, proc.SampleRate(), 1, audio.EncodingFloat32); err != nil {
		return nil, fmt.Errorf("writing target: %w", err)
	}
	if err := p.writeWAV(report.ResidualPath, residual, proc.SampleRate(), 1, audio.EncodingFloat32); err != nil {
		return nil, fmt.Errorf("writing residual: %w", err)
	}

	report.TargetSamples = len(target)
	report.ResidualSamples = len(residual)
	report.Elapsed = time.Since(start)

	p.log.Info().
		Str("target", report.TargetPath).
		Str("residual", report.ResidualPath).
		Dur("elapsed", report.Elapsed).
		Msg("separation complete")

	return report, nil
}

// runChunk separates one chunk via the temp file. Cleanup always runs.
func (p *Pipeline) runChunk(ctx context.Context, proc *Processor, c audio.Chunk, tmp string, job Job) (ChunkReport, []float32, []float32, error) {
	started := time.Now()
	defer p.releaseChunk(ctx, tmp)

	if err := p.writeWAV(tmp, c.Samples, c.SampleRate, 1, audio.EncodingPCM16); err != nil {
		return ChunkReport{}, nil, nil, fmt.Errorf("writing temp chunk: %w", err)
	}

	inputs, err := proc.Prepare([]string{tmp}, []string{job.Description})
	if err != nil {
		return ChunkReport{}, nil, nil, err
	}

	res, err := p.model.Separate(ctx, inputs, Options{
		PredictSpans:        false,
		RerankingCandidates: job.RerankingCandidates,
		InferenceMode:       true,
		AutocastDType:       DTypeFloat16,
	})
	if err != nil {
		return ChunkReport{}, nil, nil, err
	}
	if res == nil || len(res.Target) == 0 || len(res.Residual) == 0 {
		return ChunkReport{}, nil, nil, fmt.Errorf("%w: empty separation result", ErrInvalidResponse)
	}

	target, residual := res.Target[0], res.Residual[0]
	p.checkLengths(c, proc.SampleRate(), res.SampleRate, len(target), len(residual))

	return ChunkReport{
		Index:           c.Index,
		Start:           c.StartTime(),
		End:             c.EndTime(),
		InputSamples:    len(c.Samples),
		TargetSamples:   len(target),
		ResidualSamples: len(residual),
		Elapsed:         time.Since(started),
	}, target, residual, nil
}

// releaseChunk frees the accelerator cache and deletes the temp chunk.
// Both are best-effort and must not mask the chunk's own outcome.
func (p *Pipeline) releaseChunk(ctx context.Context, tmp string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.releaseTimeout)
	defer cancel()
	if err := p.model.ReleaseCache(rctx); err != nil {
		p.log.Debug().Err(err).Msg("cache release failed")
	}
	if err := p.files.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.log.Debug().Err(err).Str("path", tmp).Msg("temp chunk cleanup failed")
	}
}

// checkLengths warns when the model output does not line up with the chunk.
// Length changes are tolerated: the outputs are concatenated as returned.
func (p *Pipeline) checkLengths(c audio.Chunk, procRate, resultRate, target, residual int) {
	if resultRate > 0 && resultRate != procRate {
		p.log.Warn().
			Int("chunk", c.Index).
			Int("result_rate", resultRate).
			Int("processor_rate", procRate).
			Msg("model output rate differs from processor rate")
	}
	expected := int(int64(len(c.Samples)) * int64(procRate) / int64(c.SampleRate))
	if target != expected || residual != target {
		p.log.Warn().
			Int("chunk", c.Index).
			Int("expected", expected).
			Int("target", target).
			Int("residual", residual).
			Msg("model output length differs from chunk length")
	}
}
