// Package audio holds the pure conversion helpers between raw float32
// PCM samples and the base64 16-bit little-endian envelope used on the
// wire.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFrame converts float32 samples in [-1, 1] to the outbound wire
// envelope: 16-bit little-endian PCM wrapped in base64.
func EncodeFrame(samples []float32) string {
	if len(samples) == 0 {
		return ""
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32768
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeChunk converts an inbound base64 envelope of 16-bit PCM back to
// float32 samples. An empty envelope decodes to nil without error so
// no-op chunks can be skipped silently.
func DecodeChunk(chunk string) ([]float32, error) {
	if chunk == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio envelope: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("odd PCM payload length %d", len(raw))
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return samples, nil
}

// Duration returns the play time in seconds of a sample block at the
// given rate.
func Duration(sampleCount, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(sampleCount) / float64(sampleRate)
}
