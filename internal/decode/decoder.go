// Package decode turns uploaded audio assets of arbitrary container/codec
// into normalized mono PCM buffers at the pipeline's target sample rate.
package decode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/laurindocbenjamim/voxscribe/internal/audio"
)

// Asset is a captured or uploaded audio payload.
type Asset struct {
	Data []byte
	MIME string
}

// Decoder converts an asset into a mono buffer at the configured rate.
type Decoder interface {
	Decode(ctx context.Context, asset Asset) (audio.Buffer, error)
}

// DecodeError reports source audio that cannot be parsed or converted.
// It is fatal to the transcription attempt; no fallback decoding happens.
type DecodeError struct {
	MIME string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode audio (%s): %v", e.MIME, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type decoder struct {
	native Decoder
	ffmpeg Decoder
}

// New builds the production decoder: native parsing for WAV input and an
// ffmpeg subprocess for every other container/codec.
func New(targetRate int, ffmpegCommand string) (Decoder, error) {
	ff, err := newFFmpegDecoder(targetRate, ffmpegCommand)
	if err != nil {
		return nil, err
	}
	return &decoder{
		native: newNativeDecoder(targetRate),
		ffmpeg: ff,
	}, nil
}

func (d *decoder) Decode(ctx context.Context, asset Asset) (audio.Buffer, error) {
	if isWAV(asset) {
		return d.native.Decode(ctx, asset)
	}
	return d.ffmpeg.Decode(ctx, asset)
}

func isWAV(asset Asset) bool {
	if asset.MIME == "audio/wav" || asset.MIME == "audio/x-wav" || asset.MIME == "audio/wave" {
		return true
	}
	return len(asset.Data) >= 12 &&
		bytes.Equal(asset.Data[0:4], []byte("RIFF")) &&
		bytes.Equal(asset.Data[8:12], []byte("WAVE"))
}
