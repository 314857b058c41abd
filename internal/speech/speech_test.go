package speech

import (
	"context"
	"strings"
	"testing"

	"github.com/laurindocbenjamim/voxscribe/internal/audio"
	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := config.SpeechConfig{Mode: "mock", Voice: "Kore"}
	synth, err := NewSynthesizer(cfg, audio.SynthesisRate)
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}
	return NewService(cfg, audio.SynthesisRate, synth, nil)
}

func TestSpeakProducesWAV(t *testing.T) {
	svc := testService(t)

	res, err := svc.Speak(context.Background(), "hello there", "")
	if err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	if err := audio.ValidateWAV(res.WAV); err != nil {
		t.Fatalf("output is not a valid wav: %v", err)
	}

	buf, err := audio.DecodeWAV(res.WAV)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if buf.SampleRate != audio.SynthesisRate {
		t.Fatalf("sample rate = %d, want %d", buf.SampleRate, audio.SynthesisRate)
	}
	if res.Duration <= 0 {
		t.Fatalf("duration = %v, want > 0", res.Duration)
	}
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	svc := testService(t)
	if _, err := svc.Speak(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestMockDurationCap(t *testing.T) {
	svc := testService(t)
	res, err := svc.Speak(context.Background(), strings.Repeat("a", 500), "")
	if err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	if res.Duration.Seconds() > 2.01 {
		t.Fatalf("mock tone ran %v, cap is 2s", res.Duration)
	}
}

func TestUnknownModeRejected(t *testing.T) {
	if _, err := NewSynthesizer(config.SpeechConfig{Mode: "bogus"}, audio.SynthesisRate); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
