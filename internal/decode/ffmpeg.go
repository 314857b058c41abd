package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/laurindocbenjamim/voxscribe/internal/audio"
	"github.com/mattn/go-shellwords"
)

type ffmpegDecoder struct {
	targetRate int
	cmd        []string
}

// newFFmpegDecoder shells out to ffmpeg for anything that is not plain WAV:
// webm/opus from browser recorders, mp3, m4a, ogg. ffmpeg downmixes to a
// single channel and resamples in one pass.
func newFFmpegDecoder(targetRate int, command string) (Decoder, error) {
	if command == "" {
		command = "ffmpeg"
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ffmpeg command is empty")
	}
	return &ffmpegDecoder{targetRate: targetRate, cmd: args}, nil
}

func (d *ffmpegDecoder) Decode(ctx context.Context, asset Asset) (audio.Buffer, error) {
	if _, err := exec.LookPath(d.cmd[0]); err != nil {
		return audio.Buffer{}, &DecodeError{MIME: asset.MIME, Err: fmt.Errorf("ffmpeg not found: %w", err)}
	}

	tmpDir, err := os.MkdirTemp("", "voxscribe_decode_*")
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "input"+extensionFor(asset.MIME))
	if err := os.WriteFile(inputPath, asset.Data, 0o600); err != nil {
		return audio.Buffer{}, fmt.Errorf("write input file: %w", err)
	}
	outputPath := filepath.Join(tmpDir, "output.raw")

	args := append([]string{}, d.cmd[1:]...)
	args = append(args,
		"-y",
		"-i", inputPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.targetRate),
		outputPath,
	)

	cmd := exec.CommandContext(ctx, d.cmd[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return audio.Buffer{}, &DecodeError{
			MIME: asset.MIME,
			Err:  fmt.Errorf("ffmpeg conversion failed: %w: %s", err, stderr.String()),
		}
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("read converted audio: %w", err)
	}
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = audio.Dequantize(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	return audio.Buffer{Samples: samples, SampleRate: d.targetRate}, nil
}

func extensionFor(mime string) string {
	switch mime {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/ogg", "application/ogg":
		return ".ogg"
	case "audio/mp4", "audio/x-m4a", "audio/m4a":
		return ".m4a"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/aac":
		return ".aac"
	default:
		return ".bin"
	}
}
