package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.TargetSampleRate != 16000 {
		t.Fatalf("expected 16000 Hz default, got %d", cfg.Audio.TargetSampleRate)
	}
	if cfg.Audio.MaxChunkSeconds != 300 {
		t.Fatalf("expected 300s chunk default, got %v", cfg.Audio.MaxChunkSeconds)
	}
	if cfg.Transcriber.Mode != "mock" {
		t.Fatalf("expected mock transcriber default, got %q", cfg.Transcriber.Mode)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default bus server, got %v", cfg.Bus.Servers)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOX_AUDIO_MAX_CHUNK_SECONDS", "120.5")
	t.Setenv("VOX_AUDIO_TARGET_SAMPLE_RATE", "8000")
	t.Setenv("VOX_TRANSCRIBER_MODE", "gemini")
	t.Setenv("VOX_TRANSCRIBER_API_KEY", "test-key")
	t.Setenv("VOX_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("VOX_STORE_PATH", "./tmp.db")
	t.Setenv("VOX_STORE_RETENTION_MODE", "session")
	t.Setenv("VOX_AUTH_ENABLED", "true")
	t.Setenv("VOX_AUTH_SIGNING_KEY", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.MaxChunkSeconds != 120.5 {
		t.Fatalf("expected chunk override, got %v", cfg.Audio.MaxChunkSeconds)
	}
	if cfg.Audio.TargetSampleRate != 8000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.TargetSampleRate)
	}
	if cfg.Transcriber.Mode != "gemini" || cfg.Transcriber.APIKey != "test-key" {
		t.Fatalf("expected transcriber override, got %+v", cfg.Transcriber)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 bus servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Store.Path != "./tmp.db" || cfg.Store.RetentionMode != "session" {
		t.Fatalf("expected store override, got %+v", cfg.Store)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("VOX_TRANSCRIBER_MODE", "whisper.cpp")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown transcriber mode")
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	t.Setenv("VOX_TRANSCRIBER_MODE", "openai")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
