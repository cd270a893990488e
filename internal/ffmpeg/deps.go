package ffmpeg

import (
	"context"
	"os"
	"os/exec"
)

// commandRunner starts a process and collects its combined stdout and stderr.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// fileStatter abstracts existence checks on the filesystem.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// envProvider abstracts environment and PATH lookup.
type envProvider interface {
	Getenv(key string) string
	LookPath(file string) (string, error)
}

var (
	_ commandRunner = osCommandRunner{}
	_ fileStatter   = osFileStatter{}
	_ envProvider   = osEnvProvider{}
)

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is the resolved ffmpeg binary, args are built by Executor
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvProvider) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
