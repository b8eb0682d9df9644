// Package repository persists course sessions and pipeline artifacts
// in SQLite. Artifacts are opaque JSON payloads keyed by kind; the
// newest artifact of a kind is the session's current one.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/txxxxz/autonote/internal/ids"
)

// ErrNotFound is returned when a session or artifact does not exist.
var ErrNotFound = errors.New("not found")

// Session lifecycle statuses, in pipeline order.
const (
	StatusUploaded     = "UPLOADED"
	StatusParsed       = "PARSED"
	StatusLayoutBuilt  = "LAYOUT_BUILT"
	StatusOutlineReady = "OUTLINE_READY"
	StatusNotesReady   = "NOTES_READY"
	StatusFailed       = "FAILED"
)

// Artifact kinds produced by the pipeline.
const (
	KindParse   = "parse"
	KindLayout  = "layout"
	KindOutline = "outline"
	KindNote    = "note"
	KindCards   = "cards"
	KindMock    = "mock"
	KindMindmap = "mindmap"
)

const schema = `
CREATE TABLE IF NOT EXISTS course_session (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	file_path  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS artifact (
	id                TEXT PRIMARY KEY,
	course_session_id TEXT NOT NULL,
	kind              TEXT NOT NULL,
	payload_json      TEXT NOT NULL,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifact_session_kind
	ON artifact (course_session_id, kind);
`

// Session is one uploaded deck and its processing state.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is one persisted pipeline output.
type Artifact struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store wraps the SQLite handle.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open creates the database file (and parent directory) if needed and
// applies the schema. WAL keeps concurrent task readers off the
// writers' backs.
func Open(path string, log *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info("database ready", "path", path)
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession registers a new uploaded deck.
func (s *Store) CreateSession(ctx context.Context, title, filePath string) (*Session, error) {
	sess := &Session{
		ID:        ids.New("sess"),
		Title:     title,
		FilePath:  filePath,
		Status:    StatusUploaded,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO course_session (id, title, file_path, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.FilePath, sess.Status, sess.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, file_path, status, created_at FROM course_session WHERE id = ?`, id)
	return scanSession(row)
}

func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, file_path, status, created_at FROM course_session ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateSessionStatus advances a session's lifecycle state.
func (s *Store) UpdateSessionStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE course_session SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSession removes the session and every artifact it owns, in one
// transaction.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact WHERE course_session_id = ?`, id); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM course_session WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// SaveArtifact stores payload as JSON and returns the artifact id.
func (s *Store) SaveArtifact(ctx context.Context, sessionID, kind string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s artifact: %w", kind, err)
	}
	id := ids.New(kind)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifact (id, course_session_id, kind, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, sessionID, kind, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("save %s artifact: %w", kind, err)
	}
	return id, nil
}

// LoadArtifact returns an artifact's payload by id.
func (s *Store) LoadArtifact(ctx context.Context, id string) (json.RawMessage, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM artifact WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return json.RawMessage(payload), nil
}

// LatestArtifact returns the newest artifact of the given kind for a
// session, or ErrNotFound.
func (s *Store) LatestArtifact(ctx context.Context, sessionID, kind string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, course_session_id, kind, payload_json, created_at
		 FROM artifact WHERE course_session_id = ? AND kind = ?
		 ORDER BY rowid DESC LIMIT 1`, sessionID, kind)
	return scanArtifact(row)
}

// ListArtifacts returns all artifacts of a kind for a session in
// insertion order.
func (s *Store) ListArtifacts(ctx context.Context, sessionID, kind string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_session_id, kind, payload_json, created_at
		 FROM artifact WHERE course_session_id = ? AND kind = ? ORDER BY rowid`, sessionID, kind)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var created string
	err := row.Scan(&sess.ID, &sess.Title, &sess.FilePath, &sess.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &sess, nil
}

func scanArtifact(row scanner) (*Artifact, error) {
	var a Artifact
	var payload, created string
	err := row.Scan(&a.ID, &a.SessionID, &a.Kind, &payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	a.Payload = json.RawMessage(payload)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &a, nil
}
