// Package interrupt turns SIGINT/SIGTERM into a two-stage shutdown:
// the first signal asks the run to stop at the next chunk boundary, the
// second cancels whatever request is in flight.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Messages shown to the user on each stage.
const (
	stopMessage  = "\nStopping after the current chunk (press Ctrl+C again to abort)..."
	abortMessage = "\nAborted."
)

// Stage reports how far shutdown has progressed.
type Stage int

const (
	// Running means no signal has been received.
	Running Stage = iota
	// Stopping means the run should end at the next chunk boundary.
	Stopping
	// Aborted means the context has been canceled.
	Aborted
)

// String returns the string representation of the Stage.
func (s Stage) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// Handler manages two-stage interrupt handling.
type Handler struct {
	mu      sync.Mutex
	stage   Stage
	stopped bool
	stop    chan struct{} // closed on the first signal
	cancel  context.CancelFunc
	done    chan struct{} // signals the listen goroutine to exit

	stderr io.Writer
	reset  func()
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh <-chan os.Signal
	// Stderr is the writer for user-facing messages.
	// Must be safe for concurrent writes. Defaults to os.Stderr.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// The returned context is canceled on the second signal only.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	h, ctx := newHandler(parent, Options{SigCh: sigCh})
	h.reset = func() { signal.Stop(sigCh) }
	return h, ctx
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		stop:   make(chan struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
		stderr: stderr,
		reset:  func() {},
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// listen advances the stage on each incoming signal.
func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if h.advance() == Aborted {
				return
			}
		}
	}
}

// advance moves to the next stage and returns it.
func (h *Handler) advance() Stage {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return h.stage
	}

	switch h.stage {
	case Running:
		h.stage = Stopping
		close(h.stop)
		fmt.Fprintln(h.stderr, stopMessage)
	case Stopping:
		h.stage = Aborted
		h.cancel()
		fmt.Fprintln(h.stderr, abortMessage)
	}
	return h.stage
}

// StopRequested returns a channel closed on the first signal.
func (h *Handler) StopRequested() <-chan struct{} {
	return h.stop
}

// Stage returns the current shutdown stage.
func (h *Handler) Stage() Stage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stage
}

// Stop releases the signal subscription and cancels the context.
// Safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	h.reset()
	h.cancel()
	close(h.done)
}
