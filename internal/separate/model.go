// Package separate drives chunked source separation against a pretrained
// model: the input is split into fixed-length chunks, each chunk is
// separated into a target and a residual, and the pieces are reassembled.
package separate

import "context"

// Defaults for loading and running the model.
const (
	// DefaultModel is the pretrained checkpoint requested when none is configured.
	DefaultModel = "facebook/sam-audio-large"

	// DefaultDevice is the accelerator the weights are moved to.
	DefaultDevice = "cuda"

	// DTypeFloat16 is the reduced precision used for weights and autocast.
	DTypeFloat16 = "float16"
)

// LoadOptions describes how the model should be materialised.
type LoadOptions struct {
	Model  string
	DType  string
	Device string
	Eval   bool
}

// DefaultLoadOptions returns float16 weights in eval mode on DefaultDevice.
func DefaultLoadOptions(model string) LoadOptions {
	if model == "" {
		model = DefaultModel
	}
	return LoadOptions{Model: model, DType: DTypeFloat16, Device: DefaultDevice, Eval: true}
}

// ModelInfo reports the state of a loaded model and its processor.
type ModelInfo struct {
	Model       string `json:"model"`
	DTypeBefore string `json:"dtype_before"`
	DType       string `json:"dtype"`
	Device      string `json:"device"`
	SampleRate  int    `json:"sample_rate"`
}

// Options controls a single separation call.
type Options struct {
	PredictSpans        bool
	RerankingCandidates int
	InferenceMode       bool
	AutocastDType       string
}

// Result holds batched separation output. Item i of Target and Residual
// corresponds to item i of the prepared Inputs.
type Result struct {
	SampleRate int
	Target     [][]float32
	Residual   [][]float32
}

// Model is a loaded source separation model.
type Model interface {
	// Load materialises the model and its processor.
	Load(ctx context.Context, opts LoadOptions) (ModelInfo, error)

	// Separate runs inference on a prepared batch.
	Separate(ctx context.Context, in *Inputs, opts Options) (*Result, error)

	// ReleaseCache frees accelerator memory held between calls.
	ReleaseCache(ctx context.Context) error
}
