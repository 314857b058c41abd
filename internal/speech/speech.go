// Package speech turns text into spoken audio. Synthesizers return raw
// 16-bit little-endian PCM at the configured synthesis rate; the Service
// wraps that into a playable WAV.
package speech

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/laurindocbenjamim/voxscribe/internal/audio"
	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

// Synthesizer produces raw PCM speech for a piece of text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// NewSynthesizer selects a backend from configuration.
func NewSynthesizer(cfg config.SpeechConfig, sampleRate int) (Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return &mockSynthesizer{sampleRate: sampleRate}, nil
	case "gemini":
		return newGeminiSynthesizer(cfg)
	default:
		return nil, fmt.Errorf("unknown speech mode %q", cfg.Mode)
	}
}

// Result is a finished synthesis: a complete WAV file plus its duration.
type Result struct {
	WAV      []byte
	Duration time.Duration
}

// Service runs synthesis and packages the PCM into WAV form.
type Service struct {
	synth      Synthesizer
	voice      string
	sampleRate int
	logger     *slog.Logger
}

func NewService(cfg config.SpeechConfig, sampleRate int, synth Synthesizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		synth:      synth,
		voice:      cfg.Voice,
		sampleRate: sampleRate,
		logger:     logger.With("component", "speech"),
	}
}

// Speak synthesizes text with the given voice (or the configured default)
// and returns a WAV file at the synthesis sample rate.
func (s *Service) Speak(ctx context.Context, text, voice string) (Result, error) {
	if text == "" {
		return Result{}, fmt.Errorf("empty text")
	}
	if voice == "" {
		voice = s.voice
	}

	start := time.Now()
	pcm, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return Result{}, fmt.Errorf("synthesize: %w", err)
	}
	if len(pcm)%2 != 0 {
		return Result{}, fmt.Errorf("synthesizer returned odd PCM length %d", len(pcm))
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	wavData, err := audio.EncodePCM16(samples, s.sampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("encode wav: %w", err)
	}

	duration := time.Duration(float64(len(samples)) / float64(s.sampleRate) * float64(time.Second))
	s.logger.Debug("synthesized speech",
		"voice", voice,
		"chars", len(text),
		"duration", duration,
		"elapsed", time.Since(start))

	return Result{WAV: wavData, Duration: duration}, nil
}
