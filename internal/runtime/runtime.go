// Package runtime assembles the voxscribed process: telemetry, the message
// bus, durable storage and the HTTP surface, with ordered shutdown.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/laurindocbenjamim/voxscribe/internal/auth"
	"github.com/laurindocbenjamim/voxscribe/internal/bus"
	"github.com/laurindocbenjamim/voxscribe/internal/config"
	"github.com/laurindocbenjamim/voxscribe/internal/decode"
	"github.com/laurindocbenjamim/voxscribe/internal/natsserver"
	"github.com/laurindocbenjamim/voxscribe/internal/server"
	"github.com/laurindocbenjamim/voxscribe/internal/speech"
	"github.com/laurindocbenjamim/voxscribe/internal/store"
	"github.com/laurindocbenjamim/voxscribe/internal/subscription"
	"github.com/laurindocbenjamim/voxscribe/internal/transcribe"
)

type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	ready  atomic.Bool
	wg     sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{cfg: cfg, logger: logger}
}

// Start brings every component up, blocks until the context is cancelled,
// then shuts down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("start embedded bus: %w", err)
	}

	busClient, err := bus.Connect(r.cfg.Bus, r.logger)
	if err != nil {
		embedded.Shutdown()
		return fmt.Errorf("connect bus: %w", err)
	}

	st, err := store.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		busClient.Close()
		embedded.Shutdown()
		return fmt.Errorf("open store: %w", err)
	}

	decoder, err := decode.New(r.cfg.Audio.TargetSampleRate, r.cfg.Audio.FFmpegCommand)
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	provider, err := transcribe.NewProvider(r.cfg.Transcriber)
	if err != nil {
		return fmt.Errorf("build transcription provider: %w", err)
	}

	authSvc := auth.NewService(r.cfg.Auth)
	quota := subscription.NewManager(r.cfg.Subscription, st, authSvc.PlanFor)

	pipeline := transcribe.NewService(
		r.cfg.Audio,
		time.Duration(r.cfg.Transcriber.TimeoutSeconds)*time.Second,
		decoder,
		provider,
		transcribe.BusNotifier{Bus: busClient},
		st,
		quota,
		r.logger,
	)

	var speechSvc server.SpeechService
	if r.cfg.Speech.Enabled {
		speechCfg := r.cfg.Speech
		if speechCfg.APIKey == "" {
			speechCfg.APIKey = r.cfg.Transcriber.APIKey
		}
		synth, err := speech.NewSynthesizer(speechCfg, r.cfg.Audio.SpeechSampleRate)
		if err != nil {
			return fmt.Errorf("build synthesizer: %w", err)
		}
		speechSvc = speech.NewService(speechCfg, r.cfg.Audio.SpeechSampleRate, synth, r.logger)
	}

	srv := server.New(server.Options{
		Config:     r.cfg.HTTP,
		Auth:       authSvc,
		Transcribe: pipeline,
		Speech:     speechSvc,
		Store:      st,
		Bus:        busClient,
		Logger:     r.logger,
		Ready:      func() bool { return r.ready.Load() && busClient.Healthy() },
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := srv.Start(); err != nil {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("service", r.cfg.ServiceName),
		slog.String("environment", r.cfg.Environment))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	busClient.Close()
	embedded.Shutdown()

	if err := st.Close(); err != nil {
		r.logger.Error("store close error", slog.String("error", err.Error()))
	}
	if shutdownTelemetry != nil {
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}
