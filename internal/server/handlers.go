package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/laurindocbenjamim/voxscribe/internal/decode"
	"github.com/laurindocbenjamim/voxscribe/internal/store"
	"github.com/laurindocbenjamim/voxscribe/internal/subscription"
	"github.com/laurindocbenjamim/voxscribe/internal/transcribe"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(c echo.Context) error {
	if !s.ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Plan      string `json:"plan"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if s.auth == nil || !s.auth.Enabled() {
		return c.JSON(http.StatusOK, loginResponse{AccountID: "local", Plan: "pro"})
	}

	token, ident, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, AccountID: ident.AccountID, Plan: ident.Plan})
}

// handleTranscription accepts a multipart upload under the "audio" field and
// runs the full pipeline synchronously. Progress events stream on the
// session's WebSocket in parallel.
func (s *Server) handleTranscription(c echo.Context) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "missing audio file"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable audio file"})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable audio file"})
	}

	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	ident := identity(c)
	result, err := s.transcribe.Transcribe(c.Request().Context(), sessionID, ident.AccountID,
		decode.Asset{Data: data, MIME: mimeType})
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type textRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Style    string `json:"style,omitempty"`
}

type textResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleTranslation(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil || req.Text == "" || req.Language == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text and language are required"})
	}
	out, err := s.transcribe.Translate(c.Request().Context(), req.Text, req.Language)
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, textResponse{Text: out})
}

func (s *Server) handleRefinement(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
	}
	out, err := s.transcribe.Refine(c.Request().Context(), req.Text, req.Style)
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, textResponse{Text: out})
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (s *Server) handleSpeech(c echo.Context) error {
	if s.speech == nil {
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "speech synthesis disabled"})
	}
	var req speechRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
	}

	res, err := s.speech.Speak(c.Request().Context(), req.Text, req.Voice)
	if err != nil {
		return s.pipelineError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="speech.wav"`)
	return c.Blob(http.StatusOK, "audio/wav", res.WAV)
}

func (s *Server) handleListTranscripts(c echo.Context) error {
	ident := identity(c)
	transcripts, err := s.store.ListTranscripts(c.Request().Context(), ident.AccountID, 100)
	if err != nil {
		return s.storageError(c, err)
	}
	return c.JSON(http.StatusOK, transcripts)
}

func (s *Server) handleGetTranscript(c echo.Context) error {
	ident := identity(c)
	t, err := s.store.GetTranscript(c.Request().Context(), ident.AccountID, c.Param("id"))
	if err != nil {
		return s.storageError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type noteRequest struct {
	ID           string `json:"id,omitempty"`
	TranscriptID string `json:"transcript_id,omitempty"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Format       string `json:"format"`
}

func (s *Server) handleSaveNote(c echo.Context) error {
	var req noteRequest
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "content is required"})
	}
	if req.Format == "" {
		req.Format = "richtext"
	}
	if req.Format != "richtext" && req.Format != "drawing" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "format must be richtext or drawing"})
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ident := identity(c)
	now := time.Now().UTC()
	note := store.Note{
		ID:           req.ID,
		AccountID:    ident.AccountID,
		TranscriptID: req.TranscriptID,
		Title:        req.Title,
		Content:      req.Content,
		Format:       req.Format,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.SaveNote(c.Request().Context(), note); err != nil {
		return s.storageError(c, err)
	}
	return c.JSON(http.StatusOK, note)
}

func (s *Server) handleListNotes(c echo.Context) error {
	ident := identity(c)
	notes, err := s.store.ListNotes(c.Request().Context(), ident.AccountID, 100)
	if err != nil {
		return s.storageError(c, err)
	}
	return c.JSON(http.StatusOK, notes)
}

func (s *Server) handleGetNote(c echo.Context) error {
	ident := identity(c)
	n, err := s.store.GetNote(c.Request().Context(), ident.AccountID, c.Param("id"))
	if err != nil {
		return s.storageError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	ident := identity(c)
	if err := s.store.DeleteNote(c.Request().Context(), ident.AccountID, c.Param("id")); err != nil {
		return s.storageError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// pipelineError maps pipeline failures onto HTTP status codes: unparseable
// audio is the client's fault, remote service failures are upstream's, and
// quota exhaustion asks for payment.
func (s *Server) pipelineError(c echo.Context, err error) error {
	var decodeErr *decode.DecodeError
	var serviceErr *transcribe.ServiceError

	switch {
	case errors.As(err, &decodeErr):
		return c.JSON(http.StatusUnsupportedMediaType, errorResponse{Error: decodeErr.Error()})
	case errors.Is(err, subscription.ErrQuotaExceeded):
		return c.JSON(http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.As(err, &serviceErr):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: serviceErr.Error()})
	default:
		s.logger.Error("pipeline failure", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) storageError(c echo.Context, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	}
	s.logger.Error("storage failure", slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
