package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// IntToFloat exports intToFloat for testing.
var IntToFloat = intToFloat

// PCM16 exports pcm16 for testing.
var PCM16 = pcm16

// --- Decoder dependency injection exports ---

// WAVTranscoder exports wavTranscoder interface for testing.
type WAVTranscoder = wavTranscoder

// TempDirCreator exports tempDirCreator interface for testing.
type TempDirCreator = tempDirCreator

// FileRemover exports fileRemover interface for testing.
type FileRemover = fileRemover
