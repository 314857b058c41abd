package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/laurindocbenjamim/voxscribe/internal/auth"
	"github.com/laurindocbenjamim/voxscribe/internal/config"
	"github.com/laurindocbenjamim/voxscribe/internal/decode"
	"github.com/laurindocbenjamim/voxscribe/internal/speech"
	"github.com/laurindocbenjamim/voxscribe/internal/store"
	"github.com/laurindocbenjamim/voxscribe/internal/subscription"
	"github.com/laurindocbenjamim/voxscribe/internal/transcribe"
)

type fakePipeline struct {
	err error
}

func (f *fakePipeline) Transcribe(_ context.Context, sessionID, accountID string, asset decode.Asset) (transcribe.Result, error) {
	if f.err != nil {
		return transcribe.Result{}, f.err
	}
	return transcribe.Result{
		TranscriptID: "t-1",
		SessionID:    sessionID,
		Text:         "hello world",
		Duration:     1.5,
		ChunkCount:   1,
	}, nil
}

func (f *fakePipeline) Translate(_ context.Context, text, lang string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "translated to " + lang, nil
}

func (f *fakePipeline) Refine(_ context.Context, text, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "refined " + text, nil
}

type fakeSpeech struct{}

func (fakeSpeech) Speak(_ context.Context, text, _ string) (speech.Result, error) {
	return speech.Result{WAV: []byte("RIFF....WAVE")}, nil
}

type fakeStore struct {
	notes map[string]store.Note
}

func newFakeStore() *fakeStore { return &fakeStore{notes: map[string]store.Note{}} }

func (s *fakeStore) GetTranscript(_ context.Context, _, id string) (store.Transcript, error) {
	if id != "t-1" {
		return store.Transcript{}, store.ErrNotFound
	}
	return store.Transcript{ID: "t-1", Text: "hello world"}, nil
}

func (s *fakeStore) ListTranscripts(context.Context, string, int) ([]store.Transcript, error) {
	return []store.Transcript{{ID: "t-1"}}, nil
}

func (s *fakeStore) SaveNote(_ context.Context, n store.Note) error {
	s.notes[n.ID] = n
	return nil
}

func (s *fakeStore) GetNote(_ context.Context, _, id string) (store.Note, error) {
	n, ok := s.notes[id]
	if !ok {
		return store.Note{}, store.ErrNotFound
	}
	return n, nil
}

func (s *fakeStore) ListNotes(context.Context, string, int) ([]store.Note, error) {
	out := make([]store.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeStore) DeleteNote(_ context.Context, _, id string) error {
	if _, ok := s.notes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

func testServer(t *testing.T, pipeline TranscriptionService, authSvc *auth.Service) *Server {
	t.Helper()
	if pipeline == nil {
		pipeline = &fakePipeline{}
	}
	return New(Options{
		Config:     config.HTTPConfig{Bind: "127.0.0.1", Port: 0, BodyLimitMB: 8},
		Auth:       authSvc,
		Transcribe: pipeline,
		Speech:     fakeSpeech{},
		Store:      newFakeStore(),
	})
}

func multipartAudio(t *testing.T, mime string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="audio"; filename="clip.wav"`)
	header.Set("Content-Type", mime)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("fake audio bytes"))
	w.Close()
	return body, w.FormDataContentType()
}

func TestTranscriptionEndpoint(t *testing.T) {
	srv := testServer(t, nil, nil)
	body, contentType := multipartAudio(t, "audio/wav")

	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res transcribe.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Text != "hello world" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestTranscriptionMissingFile(t *testing.T) {
	srv := testServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPipelineErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"decode failure", &decode.DecodeError{MIME: "audio/xyz", Err: fmt.Errorf("bad")}, http.StatusUnsupportedMediaType},
		{"remote failure", &transcribe.ServiceError{Chunk: 1, Err: fmt.Errorf("boom")}, http.StatusBadGateway},
		{"quota", fmt.Errorf("limit: %w", subscription.ErrQuotaExceeded), http.StatusPaymentRequired},
		{"unknown", fmt.Errorf("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, &fakePipeline{err: tt.err}, nil)
			body, contentType := multipartAudio(t, "audio/wav")

			req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	authSvc := auth.NewService(config.AuthConfig{
		Enabled:     true,
		SigningKey:  "test-key",
		TokenTTLMin: 10,
		Accounts:    []config.AuthAccount{{Email: "a@b.c", Password: "pw", Plan: "free"}},
	})
	srv := testServer(t, nil, authSvc)

	req := httptest.NewRequest(http.MethodGet, "/v1/transcripts", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	loginBody := strings.NewReader(`{"email":"a@b.c","password":"pw"}`)
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/login", loginBody)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/transcripts", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSpeechEndpoint(t *testing.T) {
	srv := testServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/speech", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/wav" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "speech.wav") {
		t.Fatalf("content disposition = %q", got)
	}
}

func TestNotesCRUD(t *testing.T) {
	srv := testServer(t, nil, nil)

	body := strings.NewReader(`{"title":"Meeting","content":"<p>notes</p>","format":"richtext"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/notes", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var saved store.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode note: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/notes/"+saved.ID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/notes/"+saved.ID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/notes/"+saved.ID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestNoteFormatValidation(t *testing.T) {
	srv := testServer(t, nil, nil)
	body := strings.NewReader(`{"content":"x","format":"video"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/notes", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t, nil, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}
