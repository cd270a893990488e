package separate

import (
	"context"
	"net/http"
	"os"

	"github.com/alnah/go-separate/internal/audio"
)

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// waveformDecoder loads an audio file into memory.
// *audio.Decoder implements this.
type waveformDecoder interface {
	Decode(ctx context.Context, path string) (audio.Waveform, error)
}

// fileReader reads whole files.
type fileReader interface {
	ReadFile(name string) ([]byte, error)
}

// fileRemover removes single files.
type fileRemover interface {
	Remove(name string) error
}

// wavWriter encodes samples to a WAV file. audio.WriteWAV matches.
type wavWriter func(path string, samples []float32, sampleRate, channels int, enc audio.Encoding) error

var (
	_ httpDoer        = (*http.Client)(nil)
	_ waveformDecoder = (*audio.Decoder)(nil)
	_ fileReader      = osFileReader{}
	_ fileRemover     = osFileRemover{}
	_ wavWriter       = audio.WriteWAV
)

type osFileReader struct{}

func (osFileReader) ReadFile(name string) ([]byte, error) {
	// #nosec G304 -- name is the pipeline's own temp chunk
	return os.ReadFile(name)
}

type osFileRemover struct{}

func (osFileRemover) Remove(name string) error {
	return os.Remove(name)
}
