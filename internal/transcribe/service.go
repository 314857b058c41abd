package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/laurindocbenjamim/voxscribe/internal/audio"
	"github.com/laurindocbenjamim/voxscribe/internal/bus"
	"github.com/laurindocbenjamim/voxscribe/internal/config"
	"github.com/laurindocbenjamim/voxscribe/internal/decode"
	"github.com/laurindocbenjamim/voxscribe/internal/protocol"
	"github.com/laurindocbenjamim/voxscribe/internal/store"
	"github.com/laurindocbenjamim/voxscribe/internal/subscription"
)

// Notifier delivers pipeline progress to interested clients.
type Notifier interface {
	Progress(p protocol.Progress)
	TranscriptReady(r protocol.TranscriptReady)
}

// Result is the outcome of one full transcription run.
type Result struct {
	TranscriptID string  `json:"transcript_id"`
	SessionID    string  `json:"session_id"`
	Text         string  `json:"text"`
	Duration     float64 `json:"duration_seconds"`
	ChunkCount   int     `json:"chunk_count"`
}

// TranscriptStore persists finished transcripts.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t store.Transcript) error
}

// Service wires the decode, chunk, encode and provider steps together.
type Service struct {
	cfg      config.AudioConfig
	timeout  time.Duration
	decoder  decode.Decoder
	provider Provider
	notifier Notifier
	store    TranscriptStore
	quota    *subscription.Manager
	logger   *slog.Logger
}

func NewService(cfg config.AudioConfig, timeout time.Duration, decoder decode.Decoder, provider Provider, notifier Notifier, ts TranscriptStore, quota *subscription.Manager, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		cfg:      cfg,
		timeout:  timeout,
		decoder:  decoder,
		provider: provider,
		notifier: notifier,
		store:    ts,
		quota:    quota,
		logger:   log.With(slog.String("component", "transcribe-service")),
	}
}

// Transcribe runs the full pipeline for one audio asset. Chunks are sent
// strictly in sequence; the context is checked before each chunk so a
// client-initiated stop aborts before the next remote request. Any chunk
// failure discards results from already-completed chunks.
func (s *Service) Transcribe(ctx context.Context, sessionID, accountID string, asset decode.Asset) (Result, error) {
	s.progress(sessionID, protocol.StageDecoding, 0, 0)

	buf, err := s.decoder.Decode(ctx, asset)
	if err != nil {
		s.progress(sessionID, protocol.StageFailed, 0, 0)
		return Result{}, err
	}

	duration := buf.Duration()
	if s.quota != nil {
		if err := s.quota.Authorize(ctx, accountID, duration); err != nil {
			s.progress(sessionID, protocol.StageFailed, 0, 0)
			return Result{}, err
		}
	}

	chunks := audio.Split(buf, s.cfg.MaxChunkSeconds)
	s.logger.Info("audio decoded",
		slog.String("session_id", sessionID),
		slog.Float64("duration_s", duration),
		slog.Int("chunks", len(chunks)))

	// Indexed result slots keep transcript order equal to chunk order.
	segments := make([]string, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			s.progress(sessionID, protocol.StageFailed, i, len(chunks))
			return Result{}, err
		}
		s.progress(sessionID, protocol.StageTranscribing, i, len(chunks))

		wavData, err := audio.EncodeWAV(chunk.Samples, chunk.SampleRate)
		if err != nil {
			s.progress(sessionID, protocol.StageFailed, i, len(chunks))
			return Result{}, fmt.Errorf("encode chunk %d: %w", i, err)
		}

		text, err := s.transcribeChunk(ctx, wavData)
		if err != nil {
			s.progress(sessionID, protocol.StageFailed, i, len(chunks))
			return Result{}, &ServiceError{Chunk: i, Err: err}
		}
		segments[chunk.Index] = text
	}

	s.progress(sessionID, protocol.StageAssembling, len(chunks), len(chunks))
	text := Assemble(segments)

	result := Result{
		TranscriptID: uuid.NewString(),
		SessionID:    sessionID,
		Text:         text,
		Duration:     duration,
		ChunkCount:   len(chunks),
	}

	if s.quota != nil {
		if err := s.quota.Record(ctx, accountID, duration); err != nil {
			s.logger.Warn("failed to record usage", slog.String("error", err.Error()))
		}
	}
	if s.store != nil {
		t := store.Transcript{
			ID:        result.TranscriptID,
			AccountID: accountID,
			Text:      text,
			Duration:  duration,
			MIME:      asset.MIME,
		}
		if err := s.store.SaveTranscript(ctx, t); err != nil {
			s.logger.Warn("failed to persist transcript", slog.String("error", err.Error()))
		}
	}

	s.progress(sessionID, protocol.StageDone, len(chunks), len(chunks))
	s.notifier.TranscriptReady(protocol.TranscriptReady{
		SessionID:    sessionID,
		TranscriptID: result.TranscriptID,
		Duration:     duration,
		Timestamp:    time.Now().UTC(),
	})
	return result, nil
}

// Translate rewrites a transcript in the target language via the provider.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf("Translate the following transcript into %s. Return only the translation.\n\n%s", targetLanguage, text)
	out, err := s.complete(ctx, prompt)
	if err != nil {
		return "", &ServiceError{Err: err}
	}
	return out, nil
}

// Refine cleans up a raw transcript (punctuation, filler words, paragraphs).
func (s *Service) Refine(ctx context.Context, text, style string) (string, error) {
	if style == "" {
		style = "clear, well-punctuated prose"
	}
	prompt := fmt.Sprintf("Rewrite the following raw transcript as %s. Keep the meaning intact and return only the rewritten text.\n\n%s", style, text)
	out, err := s.complete(ctx, prompt)
	if err != nil {
		return "", &ServiceError{Err: err}
	}
	return out, nil
}

func (s *Service) transcribeChunk(ctx context.Context, wavData []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.Transcribe(callCtx, wavData, "audio/wav")
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.Complete(callCtx, prompt)
}

func (s *Service) progress(sessionID, stage string, index, count int) {
	s.notifier.Progress(protocol.Progress{
		SessionID:  sessionID,
		Stage:      stage,
		ChunkIndex: index,
		ChunkCount: count,
		Timestamp:  time.Now().UTC(),
	})
}

// NopNotifier drops progress events; used when no bus is configured.
type NopNotifier struct{}

func (NopNotifier) Progress(protocol.Progress)               {}
func (NopNotifier) TranscriptReady(protocol.TranscriptReady) {}

// BusNotifier publishes progress events on the NATS bus.
type BusNotifier struct {
	Bus *bus.Client
}

func (n BusNotifier) Progress(p protocol.Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		n.Bus.Logger().Warn("failed to marshal progress", slog.String("error", err.Error()))
		return
	}
	if err := n.Bus.Conn().Publish(protocol.ProgressSubject(p.SessionID), data); err != nil {
		n.Bus.Logger().Warn("failed to publish progress", slog.String("error", err.Error()))
	}
}

func (n BusNotifier) TranscriptReady(r protocol.TranscriptReady) {
	data, err := json.Marshal(r)
	if err != nil {
		n.Bus.Logger().Warn("failed to marshal transcript ready", slog.String("error", err.Error()))
		return
	}
	if err := n.Bus.Conn().Publish(protocol.SubjectTranscriptReady, data); err != nil {
		n.Bus.Logger().Warn("failed to publish transcript ready", slog.String("error", err.Error()))
	}
}
