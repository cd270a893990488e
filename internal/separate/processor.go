package separate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AudioInput is one encoded audio file in a prepared batch.
type AudioInput struct {
	Name string
	Data []byte
}

// Inputs is a batch ready for Model.Separate: item i of Audio is described
// by item i of Descriptions.
type Inputs struct {
	Audio        []AudioInput
	Descriptions []string
}

// Len returns the batch size.
func (in *Inputs) Len() int {
	return len(in.Audio)
}

// Processor prepares model inputs and knows the rate the model emits audio at.
type Processor struct {
	sampleRate int
	files      fileReader
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorFileReader sets the reader used to load audio files.
func WithProcessorFileReader(r fileReader) ProcessorOption {
	return func(p *Processor) { p.files = r }
}

// NewProcessor creates the processor that accompanies a loaded model.
func NewProcessor(info ModelInfo, opts ...ProcessorOption) (*Processor, error) {
	if info.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: model reported sample rate %d", ErrInvalidResponse, info.SampleRate)
	}
	p := &Processor{sampleRate: info.SampleRate, files: osFileReader{}}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SampleRate returns the rate of audio produced by the model.
func (p *Processor) SampleRate() int {
	return p.sampleRate
}

// Prepare loads the audio files and pairs them with their descriptions.
func (p *Processor) Prepare(paths, descriptions []string) (*Inputs, error) {
	if len(paths) != len(descriptions) {
		return nil, fmt.Errorf("%w: %d audio, %d descriptions", ErrBatchMismatch, len(paths), len(descriptions))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrBatchMismatch)
	}

	in := &Inputs{
		Audio:        make([]AudioInput, len(paths)),
		Descriptions: make([]string, len(descriptions)),
	}
	for i, path := range paths {
		desc := strings.TrimSpace(descriptions[i])
		if desc == "" {
			return nil, fmt.Errorf("%w: item %d", ErrEmptyDescription, i)
		}
		data, err := p.files.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		in.Audio[i] = AudioInput{Name: filepath.Base(path), Data: data}
		in.Descriptions[i] = desc
	}
	return in, nil
}
