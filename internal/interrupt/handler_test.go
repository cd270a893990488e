package interrupt_test

// Notes:
// - Signals are injected through Options.SigCh; no real signals are sent.
// - ctx.Done() and StopRequested() are used to synchronise with the listener.
// - bytes.Buffer is not thread-safe, so stderr goes to syncBuffer.

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/alnah/go-separate/internal/interrupt"
)

// waitTimeout bounds every wait on the listener goroutine.
const waitTimeout = 2 * time.Second

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func TestNewHandler(t *testing.T) {
	t.Parallel()

	h, ctx := interrupt.NewHandler(context.Background())
	if h == nil || ctx == nil {
		t.Fatal("NewHandler returned nil")
	}

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled before any signal")
	case <-h.StopRequested():
		t.Fatal("stop should not be requested before any signal")
	default:
	}
	if got := h.Stage(); got != interrupt.Running {
		t.Errorf("Stage() = %v, want %v", got, interrupt.Running)
	}

	h.Stop()
	h.Stop() // idempotent
	if ctx.Err() == nil {
		t.Error("Stop() should cancel the context")
	}
}

// ---------------------------------------------------------------------------
// Signal stages
// ---------------------------------------------------------------------------

func TestHandler_FirstSignalRequestsStop(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	var stderr syncBuffer
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{SigCh: sigCh, Stderr: &stderr})
	defer h.Stop()

	sigCh <- syscall.SIGINT
	waitClosed(t, h.StopRequested(), "stop request")

	if ctx.Err() != nil {
		t.Error("first signal should not cancel the context")
	}
	if got := h.Stage(); got != interrupt.Stopping {
		t.Errorf("Stage() = %v, want %v", got, interrupt.Stopping)
	}
	if !strings.Contains(stderr.String(), "Stopping after the current chunk") {
		t.Errorf("stderr = %q, want stop message", stderr.String())
	}
}

func TestHandler_SecondSignalAborts(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	var stderr syncBuffer
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{SigCh: sigCh, Stderr: &stderr})
	defer h.Stop()

	sigCh <- syscall.SIGINT
	sigCh <- syscall.SIGTERM
	waitClosed(t, ctx.Done(), "context cancellation")

	if got := h.Stage(); got != interrupt.Aborted {
		t.Errorf("Stage() = %v, want %v", got, interrupt.Aborted)
	}
	if !strings.Contains(stderr.String(), "Aborted.") {
		t.Errorf("stderr = %q, want abort message", stderr.String())
	}
}

func TestHandler_ParentCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	h, ctx := interrupt.NewHandlerWithOptions(parent, interrupt.Options{})
	defer h.Stop()

	cancel()
	waitClosed(t, ctx.Done(), "parent cancellation")

	if got := h.Stage(); got != interrupt.Running {
		t.Errorf("Stage() = %v, want %v", got, interrupt.Running)
	}
}

func TestHandler_SignalsAfterStopIgnored(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	h, _ := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{SigCh: sigCh, Stderr: &syncBuffer{}})
	h.Stop()

	sigCh <- syscall.SIGINT
	time.Sleep(50 * time.Millisecond)

	select {
	case <-h.StopRequested():
		t.Error("signal after Stop() should be ignored")
	default:
	}
}

func TestHandler_ClosedChannel(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal)
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{SigCh: sigCh, Stderr: &syncBuffer{}})
	defer h.Stop()

	close(sigCh)
	time.Sleep(50 * time.Millisecond)

	if ctx.Err() != nil || h.Stage() != interrupt.Running {
		t.Error("closing the signal channel should not change state")
	}
}

func TestStage_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage interrupt.Stage
		want  string
	}{
		{interrupt.Running, "Running"},
		{interrupt.Stopping, "Stopping"},
		{interrupt.Aborted, "Aborted"},
		{interrupt.Stage(42), "Stage(42)"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}
