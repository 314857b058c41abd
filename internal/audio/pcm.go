// Package audio implements the PCM sample model shared by the transcription
// pipeline: normalized float buffers, duration-bounded chunking and the
// 16-bit mono WAV container used for provider requests and downloads.
package audio

import "math"

// TranscriptionRate is the sample rate providers expect for uploaded audio.
const TranscriptionRate = 16000

// SynthesisRate is the sample rate of synthesized speech PCM.
const SynthesisRate = 24000

// Buffer holds mono PCM samples in [-1, 1] at a fixed sample rate.
// A Buffer is read-only once produced by the decode step.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Clamp limits a sample to the representable [-1, 1] range.
func Clamp(s float32) float32 {
	if s < -1 {
		return -1
	}
	if s > 1 {
		return 1
	}
	return s
}

// Quantize maps a float sample onto the full signed 16-bit range.
// Negative values scale by 32768 and non-negative by 32767 so that -1.0
// lands exactly on -32768 without clipping +1.0.
func Quantize(s float32) int16 {
	s = Clamp(s)
	if s < 0 {
		return int16(math.Round(float64(s) * 32768))
	}
	return int16(math.Round(float64(s) * 32767))
}

// Dequantize is the inverse mapping of Quantize.
func Dequantize(v int16) float32 {
	if v < 0 {
		return float32(v) / 32768
	}
	return float32(v) / 32767
}
