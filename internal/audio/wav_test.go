package audio

import (
	"math"
	"testing"
)

func TestEncodeWAVHeaderInvariant(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(TranscriptionRate)))
	}

	data, err := EncodeWAV(samples, TranscriptionRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if len(data) != 44+2*len(samples) {
		t.Errorf("expected %d bytes, got %d", 44+2*len(samples), len(data))
	}
	if err := ValidateWAV(data); err != nil {
		t.Errorf("generated wav is invalid: %v", err)
	}

	info, err := WAVInfo(data)
	if err != nil {
		t.Fatalf("WAVInfo failed: %v", err)
	}
	if info.SampleRate != TranscriptionRate {
		t.Errorf("expected sample rate %d, got %d", TranscriptionRate, info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("expected mono, got %d channels", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("expected 16 bits per sample, got %d", info.BitsPerSample)
	}
	if info.DataSize != 2*len(samples) {
		t.Errorf("expected data size %d, got %d", 2*len(samples), info.DataSize)
	}
	expected := float64(len(samples)) / float64(TranscriptionRate)
	if math.Abs(info.Duration-expected) > 0.001 {
		t.Errorf("expected duration %.3f, got %.3f", expected, info.Duration)
	}
}

func TestEncodeWAVThreeSampleScenario(t *testing.T) {
	data, err := EncodeWAV([]float32{0.0, 0.5, -1.0}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if len(data) != 50 {
		t.Fatalf("expected 50 bytes, got %d", len(data))
	}

	sample := func(i int) int16 {
		return int16(uint16(data[44+i*2]) | uint16(data[44+i*2+1])<<8)
	}
	if got := sample(0); got != 0 {
		t.Errorf("sample 0: expected 0, got %d", got)
	}
	if got := sample(1); got != 16384 {
		t.Errorf("sample 1: expected 16384, got %d", got)
	}
	if got := sample(2); got != -32768 {
		t.Errorf("sample 2: expected -32768, got %d", got)
	}
}

func TestQuantizeMapping(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{0.5, 16384},
		{-0.5, -16384},
		{1.5, 32767},   // clamped
		{-1.5, -32768}, // clamped
	}
	for _, tc := range cases {
		if got := Quantize(tc.in); got != tc.want {
			t.Errorf("Quantize(%v): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	samples := make([]float32, 4000)
	for i := range samples {
		samples[i] = float32(math.Sin(2*math.Pi*220*float64(i)/16000)) * 0.8
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	decoded, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", decoded.SampleRate)
	}
	if len(decoded.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded.Samples))
	}
	for i, s := range samples {
		if math.Abs(float64(decoded.Samples[i]-s)) > 1.0/32768 {
			t.Fatalf("sample %d: expected %v within one quantization step, got %v", i, s, decoded.Samples[i])
		}
	}
}

func TestRoundTripPCM16Exact(t *testing.T) {
	pcm := []int16{100, -200, 300, -400, 500, 32767, -32768}
	data, err := EncodePCM16(pcm, 24000)
	if err != nil {
		t.Fatalf("EncodePCM16 failed: %v", err)
	}
	decoded, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	for i, v := range pcm {
		if got := Quantize(decoded.Samples[i]); got != v {
			t.Errorf("sample %d: expected %d after requantize, got %d", i, v, got)
		}
	}
}

func TestDecodeWAVRejectsMalformed(t *testing.T) {
	if _, err := DecodeWAV([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated data")
	}

	bad := make([]byte, 50)
	copy(bad[0:4], "FAKE")
	if err := ValidateWAV(bad); err == nil {
		t.Error("expected error for missing RIFF marker")
	}

	good, err := EncodeWAV([]float32{0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	truncated := good[:len(good)-1]
	if _, err := DecodeWAV(truncated); err == nil {
		t.Error("expected size invariant violation for truncated payload")
	}
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	if _, err := EncodeWAV([]float32{0.1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := EncodeWAV([]float32{0.1}, -8000); err == nil {
		t.Error("expected error for negative sample rate")
	}
}
