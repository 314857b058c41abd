package decode

import (
	"bytes"
	"context"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/laurindocbenjamim/voxscribe/internal/audio"
)

type nativeDecoder struct {
	targetRate int
}

// newNativeDecoder parses WAV input in-process, keeping the common capture
// format off the ffmpeg path.
func newNativeDecoder(targetRate int) Decoder {
	return &nativeDecoder{targetRate: targetRate}
}

func (d *nativeDecoder) Decode(_ context.Context, asset Asset) (audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(asset.Data))
	if !dec.IsValidFile() {
		return audio.Buffer{}, &DecodeError{MIME: asset.MIME, Err: fmt.Errorf("not a valid wav file")}
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Buffer{}, &DecodeError{MIME: asset.MIME, Err: fmt.Errorf("read pcm: %w", err)}
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 || pcm.Format.SampleRate <= 0 {
		return audio.Buffer{}, &DecodeError{MIME: asset.MIME, Err: fmt.Errorf("missing pcm format")}
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return audio.Buffer{}, &DecodeError{MIME: asset.MIME, Err: fmt.Errorf("unsupported bit depth %d", bitDepth)}
	}

	buf := audio.Buffer{
		Samples:    downmixFirstChannel(pcm, bitDepth),
		SampleRate: pcm.Format.SampleRate,
	}
	if buf.SampleRate != d.targetRate {
		buf = Resample(buf, d.targetRate)
	}
	return buf, nil
}

// downmixFirstChannel converts an interleaved int buffer to normalized
// float32 mono. Only the first channel is kept; remaining channels are
// dropped, matching the capture pipeline's observed mono downmix.
func downmixFirstChannel(pcm *goaudio.IntBuffer, bitDepth int) []float32 {
	scale := float32(int64(1) << (bitDepth - 1))
	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		samples[i] = audio.Clamp(float32(pcm.Data[i*channels]) / scale)
	}
	return samples
}
