package separate

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// DecodeFloat32s exports decodeFloat32s for testing.
var DecodeFloat32s = decodeFloat32s

// ParseHTTPError exports parseHTTPError for testing.
var ParseHTTPError = parseHTTPError

// ClassifyTransportError exports classifyTransportError for testing.
var ClassifyTransportError = classifyTransportError

// EncodeFloat32s produces the service's base64 little-endian float32 payload.
func EncodeFloat32s(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// --- Dependency injection exports ---

// FileReader exports fileReader interface for testing.
type FileReader = fileReader

// FileRemover exports fileRemover interface for testing.
type FileRemover = fileRemover

// WaveformDecoder exports waveformDecoder interface for testing.
type WaveformDecoder = waveformDecoder
