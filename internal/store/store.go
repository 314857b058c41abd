// Package store persists the product's durable state: finished transcripts,
// notebook notes and per-account usage counters. Backed by SQLite; the
// pipeline's intermediate PCM buffers and chunks are never written here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transcript or note does not exist.
var ErrNotFound = errors.New("not found")

// Transcript is the persisted output of one transcription run.
type Transcript struct {
	ID        string
	AccountID string
	Title     string
	Text      string
	Duration  float64
	MIME      string
	CreatedAt time.Time
}

// Note is a user-authored notebook entry, optionally tied to a transcript.
type Note struct {
	ID           string
	AccountID    string
	TranscriptID string
	Title        string
	Content      string
	Format       string // "richtext" or "drawing"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config. Retention mode
// "ephemeral" yields a store that drops every write.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("store vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS transcripts (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    title TEXT,
    body TEXT NOT NULL,
    duration_seconds REAL NOT NULL,
    source_mime TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_account_created ON transcripts(account_id, created_at);
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    transcript_id TEXT,
    title TEXT,
    content TEXT NOT NULL,
    format TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_account_updated ON notes(account_id, updated_at);
CREATE TABLE IF NOT EXISTS usage (
    account_id TEXT NOT NULL,
    period TEXT NOT NULL,
    seconds_used REAL NOT NULL DEFAULT 0,
    PRIMARY KEY(account_id, period)
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveTranscript inserts a finished transcript.
func (s *Store) SaveTranscript(ctx context.Context, t Transcript) error {
	if s.db == nil {
		return nil
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts(id, account_id, title, body, duration_seconds, source_mime, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Title, t.Text, t.Duration, t.MIME, t.CreatedAt)
	return err
}

// GetTranscript fetches one transcript by id.
func (s *Store) GetTranscript(ctx context.Context, accountID, id string) (Transcript, error) {
	if s.db == nil {
		return Transcript{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, title, body, duration_seconds, source_mime, created_at
		 FROM transcripts WHERE id = ? AND account_id = ?`, id, accountID)
	var t Transcript
	var created string
	err := row.Scan(&t.ID, &t.AccountID, &t.Title, &t.Text, &t.Duration, &t.MIME, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, ErrNotFound
	}
	if err != nil {
		return Transcript{}, err
	}
	t.CreatedAt = parseTime(created)
	return t, nil
}

// ListTranscripts returns up to limit transcripts for an account, newest first.
func (s *Store) ListTranscripts(ctx context.Context, accountID string, limit int) ([]Transcript, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, title, body, duration_seconds, source_mime, created_at
		 FROM transcripts WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		var created string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Title, &t.Text, &t.Duration, &t.MIME, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveNote inserts or updates a notebook note.
func (s *Store) SaveNote(ctx context.Context, n Note) error {
	if s.db == nil {
		return nil
	}
	now := s.clock().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes(id, account_id, transcript_id, title, content, format, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title=excluded.title, content=excluded.content,
		   format=excluded.format, updated_at=excluded.updated_at`,
		n.ID, n.AccountID, n.TranscriptID, n.Title, n.Content, n.Format, n.CreatedAt, n.UpdatedAt)
	return err
}

// GetNote fetches one note by id.
func (s *Store) GetNote(ctx context.Context, accountID, id string) (Note, error) {
	if s.db == nil {
		return Note{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, transcript_id, title, content, format, created_at, updated_at
		 FROM notes WHERE id = ? AND account_id = ?`, id, accountID)
	var n Note
	var created, updated string
	err := row.Scan(&n.ID, &n.AccountID, &n.TranscriptID, &n.Title, &n.Content, &n.Format, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	n.CreatedAt = parseTime(created)
	n.UpdatedAt = parseTime(updated)
	return n, nil
}

// ListNotes returns an account's notes, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, accountID string, limit int) ([]Note, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, transcript_id, title, content, format, created_at, updated_at
		 FROM notes WHERE account_id = ? ORDER BY updated_at DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		var created, updated string
		if err := rows.Scan(&n.ID, &n.AccountID, &n.TranscriptID, &n.Title, &n.Content, &n.Format, &created, &updated); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(created)
		n.UpdatedAt = parseTime(updated)
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, accountID, id string) error {
	if s.db == nil {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddUsage accumulates transcribed seconds for an account within a billing
// period (formatted as YYYY-MM).
func (s *Store) AddUsage(ctx context.Context, accountID, period string, seconds float64) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage(account_id, period, seconds_used) VALUES(?, ?, ?)
		 ON CONFLICT(account_id, period) DO UPDATE SET seconds_used = seconds_used + excluded.seconds_used`,
		accountID, period, seconds)
	return err
}

// UsageSeconds returns the seconds consumed by an account in a period.
func (s *Store) UsageSeconds(ctx context.Context, accountID, period string) (float64, error) {
	if s.db == nil {
		return 0, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT seconds_used FROM usage WHERE account_id = ? AND period = ?`, accountID, period)
	var used float64
	err := row.Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return used, err
}

// Prune applies configured retention to transcripts.
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM transcripts WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxTranscripts > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM transcripts WHERE id IN (
			SELECT id FROM transcripts ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxTranscripts)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func parseTime(v string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", v); err == nil {
		return ts
	}
	return time.Time{}
}
