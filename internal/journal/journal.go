// Package journal records observable session events: connection transitions,
// retries, pairing activity and command dispatches.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry kinds.
const (
	KindTransition = "TRANSITION"
	KindRetry      = "RETRY"
	KindPairing    = "PAIRING"
	KindCommand    = "COMMAND"
	KindDenial     = "DENIAL"
	KindSystem     = "SYSTEM"
)

// Entry is a single journal record.
type Entry struct {
	ID        int64     `json:"id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	Code      int       `json:"code,omitempty"`     // reason code, when applicable
	Metadata  string    `json:"metadata,omitempty"` // JSON blob for rich detail
}

const schema = `
CREATE TABLE IF NOT EXISTS journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL,
	code INTEGER NOT NULL DEFAULT 0,
	metadata TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_journal_kind ON journal(kind);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Journal is a sqlite-backed event journal.
type Journal struct {
	db *sql.DB
}

// New opens (or creates) the journal database at dbPath.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends an entry. A zero timestamp is filled with the current time.
func (j *Journal) Record(e *Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	res, err := j.db.Exec(`
		INSERT INTO journal (trace_id, timestamp, kind, detail, code, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.TraceID, e.Timestamp, e.Kind, e.Detail, e.Code, e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(`
		SELECT id, trace_id, timestamp, kind, detail, code, metadata
		FROM journal ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Timestamp, &e.Kind, &e.Detail, &e.Code, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetSetting stores a key/value setting.
func (j *Journal) SetSetting(key, value string) error {
	_, err := j.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// GetSetting returns a stored setting, or "" when absent.
func (j *Journal) GetSetting(key string) (string, error) {
	var value string
	err := j.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
