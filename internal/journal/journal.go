// Package journal keeps an append-only sqlite log of signing outcomes.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/tx"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown attempt id.
var ErrNotFound = errors.New("journal entry not found")

const timeLayout = "2006-01-02 15:04:05"

// Store persists terminal signing attempts. Entries never hold key material,
// only what was shown to the user and the outcome.
type Store struct {
	db *sql.DB
}

// Entry is one journaled attempt.
type Entry struct {
	ID          string
	Kind        string
	Network     string
	Account     string
	From        string
	State       string
	Cid         string
	Error       string
	MessageJSON string
	CreatedAt   time.Time
}

// Open opens (or creates) the journal at path, creating parent directories.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create journal dir")
	}
	return OpenDSN(path)
}

// OpenDSN opens a journal using the given sqlite DSN. Tests pass ":memory:".
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open journal db")
	}
	// a :memory: database lives and dies with its connection
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS attempts (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	network TEXT NOT NULL,
	account TEXT NOT NULL,
	from_addr TEXT,
	state TEXT NOT NULL,
	cid TEXT,
	error TEXT,
	message_json TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS attempts_created_at ON attempts (created_at);
`)
	if err != nil {
		return errors.Wrap(err, "create attempts table")
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a terminal attempt. Recording the same id twice keeps the
// latest state.
func (s *Store) Record(ctx context.Context, a tx.Attempt) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal not initialized")
	}
	if a.ID == "" {
		return fmt.Errorf("attempt id is required")
	}

	var msgJSON string
	if a.Message != nil {
		raw, err := json.Marshal(a.Message.ToJSON(a.Network))
		if err != nil {
			return errors.Wrap(err, "marshal message")
		}
		msgJSON = string(raw)
	}

	from := ""
	if !a.From.Empty() {
		from = fil.FormatAddress(a.Network, a.From)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO attempts (id, kind, network, account, from_addr, state, cid, error, message_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state=excluded.state,
	cid=excluded.cid,
	error=excluded.error,
	message_json=excluded.message_json
`, a.ID, string(a.Kind), string(a.Network), a.Account, from, a.State.String(), a.Cid, a.Error, msgJSON,
		created.UTC().Format(timeLayout))
	if err != nil {
		return errors.Wrap(err, "persist attempt")
	}
	return nil
}

const selectColumns = `SELECT id, kind, network, account, COALESCE(from_addr, ''), state,
	COALESCE(cid, ''), COALESCE(error, ''), COALESCE(message_json, ''), created_at FROM attempts`

// Get returns the attempt with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read attempt")
	}
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list attempts")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "read attempt")
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var created string
	if err := row.Scan(&e.ID, &e.Kind, &e.Network, &e.Account, &e.From, &e.State,
		&e.Cid, &e.Error, &e.MessageJSON, &created); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(timeLayout, created); err == nil {
		e.CreatedAt = ts
	}
	return &e, nil
}
