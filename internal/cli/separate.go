package cli

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-separate/internal/audio"
	"github.com/alnah/go-separate/internal/config"
	"github.com/alnah/go-separate/internal/ffmpeg"
	"github.com/alnah/go-separate/internal/separate"
)

// EnvAPIKey holds the optional bearer token for the separation service.
const EnvAPIKey = "SEPARATE_API_KEY"

// separateOptions holds the parsed flags of the root command.
type separateOptions struct {
	audioPath    string
	description  string
	output       string
	rerank       int
	serverURL    string
	model        string
	device       string
	chunkSeconds float64
	summary      bool
	verbose      bool
}

// SeparateCmd creates the root separation command.
// The env parameter provides injectable dependencies for testing.
func SeparateCmd(env *Env) *cobra.Command {
	var opts separateOptions

	cmd := &cobra.Command{
		Use:   "separate",
		Short: "Isolate a described sound from an audio file",
		Long: `Isolate the sound matching a text description from an audio file.

The input is mixed down to mono, split into fixed-length chunks and each chunk
is sent to the separation service. The results are concatenated into:

  <out>_target.wav     the described sound
  <out>_residual.wav   everything else

Both outputs are 32-bit float WAV at the model's sample rate. WAV input is read
natively; other formats require FFmpeg (FFMPEG_PATH or PATH).`,
		Example: `  separate --audio band.wav --desc "electric guitar" --out stems/guitar
  separate --audio podcast.mp3 --desc "dog barking" --out dog --rerank 4
  separate --audio take.flac --desc "vocals" --out vox --server http://gpu-box:8080 --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeparate(cmd, env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.audioPath, "audio", "", "Input audio file")
	cmd.Flags().StringVar(&opts.description, "desc", "", "Text description of the sound to isolate")
	cmd.Flags().StringVar(&opts.output, "out", "", "Output prefix (writes <out>_target.wav and <out>_residual.wav)")
	cmd.Flags().IntVar(&opts.rerank, "rerank", 0, "Reranking candidates (0 disables reranking)")
	cmd.Flags().StringVar(&opts.serverURL, "server", "", "Separation service URL (default: config server-url)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Pretrained checkpoint (default: config model or "+separate.DefaultModel+")")
	cmd.Flags().StringVar(&opts.device, "device", separate.DefaultDevice, "Accelerator device for the model")
	cmd.Flags().Float64Var(&opts.chunkSeconds, "chunk-seconds", audio.DefaultChunkDuration.Seconds(), "Chunk length in seconds")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print a per-chunk summary table")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("desc")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// runSeparate executes one separation run.
// Validation order: flags -> input exists -> config -> server URL -> output dir -> lock.
func runSeparate(cmd *cobra.Command, env *Env, opts separateOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if opts.rerank < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRerank, opts.rerank)
	}
	if opts.chunkSeconds <= 0 || math.IsNaN(opts.chunkSeconds) || math.IsInf(opts.chunkSeconds, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidChunkSeconds, opts.chunkSeconds)
	}
	chunkDuration := time.Duration(opts.chunkSeconds * float64(time.Second))
	if chunkDuration <= 0 {
		return fmt.Errorf("%w: %g s is shorter than 1ns", ErrInvalidChunkSeconds, opts.chunkSeconds)
	}
	if strings.TrimSpace(opts.description) == "" {
		return separate.ErrEmptyDescription
	}

	if _, err := os.Stat(opts.audioPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", audio.ErrFileNotFound, opts.audioPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	serverURL := firstNonEmpty(opts.serverURL, cfg.ServerURL)
	if serverURL == "" {
		return fmt.Errorf("%w (set it with: separate config set %s http://host:port, or --server)",
			separate.ErrServerURLMissing, config.KeyServerURL)
	}
	modelName := firstNonEmpty(opts.model, cfg.Model, separate.DefaultModel)

	prefix := config.ResolveOutputPath(opts.output, cfg.OutputDir)
	if err := config.EnsureOutputDir(filepath.Dir(prefix)); err != nil {
		return fmt.Errorf("invalid output location: %w", err)
	}

	// === SETUP ===

	log := newLogger(env, opts.verbose)

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	switch {
	case errors.Is(err, ffmpeg.ErrNotFound):
		log.Debug().Msg("ffmpeg not found, only WAV input is supported")
		ffmpegPath = ""
	case err != nil:
		return err
	default:
		env.FFmpegResolver.CheckVersion(ctx, ffmpegPath, log)
	}

	lock, err := acquireRunLock(prefix)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			log.Debug().Err(rerr).Msg("run lock release failed")
		}
	}()

	model, err := env.ModelFactory.NewModel(serverURL, env.Getenv(EnvAPIKey), log)
	if err != nil {
		return err
	}

	chunker, err := audio.NewFixedChunker(chunkDuration)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunkSeconds, err)
	}

	load := separate.DefaultLoadOptions(modelName)
	if opts.device != "" {
		load.Device = opts.device
	}

	pipeline := separate.NewPipeline(model, env.DecoderFactory.NewDecoder(ffmpegPath),
		separate.WithLoadOptions(load),
		separate.WithChunker(chunker),
		separate.WithPipelineLogger(log),
		separate.WithStop(env.Stop),
	)

	// === EXECUTION ===

	started := env.Now()
	report, err := pipeline.Run(ctx, separate.Job{
		AudioPath:           opts.audioPath,
		Description:         opts.description,
		OutputPrefix:        prefix,
		RerankingCandidates: opts.rerank,
	})
	if err != nil {
		return err
	}

	if opts.summary {
		fmt.Fprint(env.Stdout, renderSummary(report))
	}
	fmt.Fprintf(env.Stderr, "Separated %d chunk(s) in %s\n", len(report.Chunks), env.Now().Sub(started).Round(time.Millisecond))
	fmt.Fprintf(env.Stderr, "Target:   %s\n", report.TargetPath)
	fmt.Fprintf(env.Stderr, "Residual: %s\n", report.ResidualPath)
	return nil
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
