package decode

import "github.com/laurindocbenjamim/voxscribe/internal/audio"

// Resample converts a mono buffer to targetRate using linear interpolation.
// Adequate for speech headed to a transcription model; the ffmpeg path
// handles rate conversion on its own.
func Resample(b audio.Buffer, targetRate int) audio.Buffer {
	if b.SampleRate == targetRate || b.SampleRate <= 0 || targetRate <= 0 || len(b.Samples) == 0 {
		return audio.Buffer{Samples: b.Samples, SampleRate: targetRate}
	}

	ratio := float64(b.SampleRate) / float64(targetRate)
	outLen := int(float64(len(b.Samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(b.Samples)-1 {
			out[i] = b.Samples[len(b.Samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = b.Samples[idx]*(1-frac) + b.Samples[idx+1]*frac
	}
	return audio.Buffer{Samples: out, SampleRate: targetRate}
}
