package config

import "errors"

// ErrUnknownKey indicates a config key outside Keys().
var ErrUnknownKey = errors.New("unknown config key")

// ErrInvalidValue indicates a value rejected for its key.
var ErrInvalidValue = errors.New("invalid config value")

// ErrNotDirectory indicates output-dir points at something other than a directory.
var ErrNotDirectory = errors.New("path is not a directory")

// ErrNotWritable indicates output-dir cannot be written to.
var ErrNotWritable = errors.New("directory is not writable")
