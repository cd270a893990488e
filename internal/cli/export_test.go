package cli

// Export internal functions for testing.

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// IsValidConfigKey exports isValidConfigKey for testing.
var IsValidConfigKey = isValidConfigKey

// RenderSummary exports renderSummary for testing.
var RenderSummary = renderSummary

// FirstNonEmpty exports firstNonEmpty for testing.
var FirstNonEmpty = firstNonEmpty

// NewLogger exports newLogger for testing.
var NewLogger = newLogger

// AcquireRunLock exports acquireRunLock for testing.
var AcquireRunLock = acquireRunLock
