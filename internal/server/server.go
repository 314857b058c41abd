// Package server exposes the REST and WebSocket surface of voxscribed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/laurindocbenjamim/voxscribe/internal/auth"
	"github.com/laurindocbenjamim/voxscribe/internal/bus"
	"github.com/laurindocbenjamim/voxscribe/internal/config"
	"github.com/laurindocbenjamim/voxscribe/internal/decode"
	"github.com/laurindocbenjamim/voxscribe/internal/speech"
	"github.com/laurindocbenjamim/voxscribe/internal/store"
	"github.com/laurindocbenjamim/voxscribe/internal/transcribe"
)

// TranscriptionService is the pipeline surface the HTTP layer drives.
type TranscriptionService interface {
	Transcribe(ctx context.Context, sessionID, accountID string, asset decode.Asset) (transcribe.Result, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	Refine(ctx context.Context, text, style string) (string, error)
}

// SpeechService synthesizes spoken audio for a transcript or note.
type SpeechService interface {
	Speak(ctx context.Context, text, voice string) (speech.Result, error)
}

// NoteStore is the durable state the HTTP layer reads and writes.
type NoteStore interface {
	GetTranscript(ctx context.Context, accountID, id string) (store.Transcript, error)
	ListTranscripts(ctx context.Context, accountID string, limit int) ([]store.Transcript, error)
	SaveNote(ctx context.Context, n store.Note) error
	GetNote(ctx context.Context, accountID, id string) (store.Note, error)
	ListNotes(ctx context.Context, accountID string, limit int) ([]store.Note, error)
	DeleteNote(ctx context.Context, accountID, id string) error
}

// Server hosts the echo instance and its dependencies.
type Server struct {
	cfg        config.HTTPConfig
	echo       *echo.Echo
	auth       *auth.Service
	transcribe TranscriptionService
	speech     SpeechService
	store      NoteStore
	bus        *bus.Client
	logger     *slog.Logger
	ready      func() bool
}

type Options struct {
	Config     config.HTTPConfig
	Auth       *auth.Service
	Transcribe TranscriptionService
	Speech     SpeechService
	Store      NoteStore
	Bus        *bus.Client
	Logger     *slog.Logger
	Ready      func() bool
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Ready == nil {
		opts.Ready = func() bool { return true }
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		cfg:        opts.Config,
		echo:       e,
		auth:       opts.Auth,
		transcribe: opts.Transcribe,
		speech:     opts.Speech,
		store:      opts.Store,
		bus:        opts.Bus,
		logger:     opts.Logger.With(slog.String("component", "http")),
		ready:      opts.Ready,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", opts.Config.BodyLimitMB)))
	e.Use(s.requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/healthz", s.handleHealthz)
	e.GET("/readyz", s.handleReadyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.POST("/auth/login", s.handleLogin)

	protected := v1.Group("", s.requireAuth)
	protected.POST("/transcriptions", s.handleTranscription)
	protected.POST("/translations", s.handleTranslation)
	protected.POST("/refinements", s.handleRefinement)
	protected.POST("/speech", s.handleSpeech)
	protected.GET("/transcripts", s.handleListTranscripts)
	protected.GET("/transcripts/:id", s.handleGetTranscript)
	protected.GET("/notes", s.handleListNotes)
	protected.POST("/notes", s.handleSaveNote)
	protected.GET("/notes/:id", s.handleGetNote)
	protected.DELETE("/notes/:id", s.handleDeleteNote)
	protected.GET("/progress/:session", s.handleProgressSocket)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	s.logger.Info("http server listening", slog.String("addr", addr))

	s.echo.Server.ReadTimeout = time.Duration(s.cfg.ReadTimeout) * time.Second
	s.echo.Server.WriteTimeout = time.Duration(s.cfg.WriteTimeout) * time.Second

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Info("request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", c.Response().Status),
			slog.Duration("elapsed", time.Since(start)))
		return err
	}
}

const identityKey = "voxscribe.identity"

// requireAuth validates the bearer token and stashes the identity. With
// auth disabled every request runs as the anonymous local account.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.auth == nil || !s.auth.Enabled() {
			c.Set(identityKey, auth.Identity{AccountID: "local", Plan: "pro"})
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			// WebSocket clients cannot set headers from browsers.
			token = c.QueryParam("token")
		}
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		ident, err := s.auth.Verify(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		c.Set(identityKey, ident)
		return next(c)
	}
}

func identity(c echo.Context) auth.Identity {
	if v, ok := c.Get(identityKey).(auth.Identity); ok {
		return v
	}
	return auth.Identity{AccountID: "local"}
}
