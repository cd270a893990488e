package audio

import (
	"context"
	"os"
)

// wavTranscoder converts an input of any format into a WAV file.
type wavTranscoder interface {
	ToWAV(ctx context.Context, ffmpegPath, input, output string) error
}

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes directory trees.
type fileRemover interface {
	RemoveAll(path string) error
}

// --- Default implementations using real OS functions ---

type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

type osFileRemover struct{}

func (osFileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
