// Package transcribe runs the transcription pipeline: decode, chunk, encode
// each chunk as WAV, send it to a speech provider and assemble the per-chunk
// results into one transcript.
package transcribe

import (
	"context"
	"fmt"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

// Provider abstracts the remote model backend. Transcribe accepts one WAV
// chunk; Complete runs a plain text prompt (translation, refinement).
type Provider interface {
	Transcribe(ctx context.Context, wavData []byte, mimeType string) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider selects a backend from config.
func NewProvider(cfg config.TranscriberConfig) (Provider, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockProvider(), nil
	case "gemini":
		return NewGeminiProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transcriber mode %q", cfg.Mode)
	}
}

// ServiceError reports a failed remote call for a specific chunk. The chunk
// loop stops on the first failure and already-transcribed chunks are
// discarded, never returned partially.
type ServiceError struct {
	Chunk int
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("transcription failed on chunk %d: %v", e.Chunk, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
