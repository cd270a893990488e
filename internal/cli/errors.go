package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrInvalidRerank indicates a negative --rerank value.
	ErrInvalidRerank = errors.New("reranking candidates must be >= 0")

	// ErrInvalidChunkSeconds indicates a non-positive --chunk-seconds value.
	ErrInvalidChunkSeconds = errors.New("chunk seconds must be > 0")

	// ErrOutputLocked indicates another run holds the lock for the output prefix.
	ErrOutputLocked = errors.New("output prefix is in use by another run")
)
