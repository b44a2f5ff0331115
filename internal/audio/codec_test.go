package audio

import (
	"encoding/base64"
	"math"
	"testing"
)

func TestEncodeFrameEmpty(t *testing.T) {
	if got := EncodeFrame(nil); got != "" {
		t.Errorf("Expected empty envelope for no samples, got %q", got)
	}
}

func TestDecodeChunkEmpty(t *testing.T) {
	samples, err := DecodeChunk("")
	if err != nil {
		t.Errorf("Empty chunk should decode without error, got %v", err)
	}
	if samples != nil {
		t.Errorf("Expected nil samples for empty chunk, got %d", len(samples))
	}
}

func TestDecodeChunkInvalid(t *testing.T) {
	if _, err := DecodeChunk("not base64!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}

	// Odd byte count cannot be 16-bit PCM.
	odd := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	if _, err := DecodeChunk(odd); err == nil {
		t.Error("Expected error for odd PCM payload")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25, -1}
	out, err := DecodeChunk(EncodeFrame(in))
	if err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/32768 {
			t.Errorf("Sample %d: expected %f, got %f", i, in[i], out[i])
		}
	}
}

func TestEncodeFrameClipping(t *testing.T) {
	out, err := DecodeChunk(EncodeFrame([]float32{2.0, -2.0}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out[0] < 0.99 {
		t.Errorf("Over-range sample should clip near 1, got %f", out[0])
	}
	if out[1] > -0.99 {
		t.Errorf("Under-range sample should clip near -1, got %f", out[1])
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		rate    int
		want    float64
	}{
		{"one second at 24k", 24000, 24000, 1.0},
		{"half second at 16k", 8000, 16000, 0.5},
		{"zero rate", 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(tt.samples, tt.rate); got != tt.want {
				t.Errorf("Duration(%d, %d) = %f, want %f", tt.samples, tt.rate, got, tt.want)
			}
		})
	}
}
