package separate

import (
	"context"
	"errors"
	"fmt"
)

// ErrServerURLMissing indicates no separation service URL was configured.
var ErrServerURLMissing = errors.New("separation server URL not configured")

// ErrInvalidJob indicates a job with missing or out-of-range fields.
var ErrInvalidJob = errors.New("invalid separation job")

// ErrBatchMismatch indicates audio paths and descriptions of different lengths.
var ErrBatchMismatch = errors.New("audio and description counts differ")

// ErrEmptyDescription indicates a blank text prompt.
var ErrEmptyDescription = errors.New("description is empty")

// ErrModelNotLoaded indicates Separate was called before a successful Load.
var ErrModelNotLoaded = errors.New("model not loaded")

// ErrInvalidResponse indicates the separation service returned an unusable payload.
var ErrInvalidResponse = errors.New("invalid response from separation service")

// ErrStopped indicates the run was asked to stop between chunks.
// It matches context.Canceled so callers treat it as an interrupt.
var ErrStopped = fmt.Errorf("stopped before completion: %w", context.Canceled)
