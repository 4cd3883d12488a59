// Package session persists the account session record across restarts.
//
// The connection provider owns the internal format of the credential blob;
// this store only guarantees that whatever was persisted comes back intact,
// and that a wipe followed by a load yields an empty, unregistered session.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStoreCorrupt is returned by Load when a persisted session record exists
// but cannot be parsed. Callers must treat the session as absent and start
// fresh.
var ErrStoreCorrupt = errors.New("session store: persisted record is corrupt")

// Session is the durable account session record.
type Session struct {
	Identity   string `json:"identity,omitempty"`
	Registered bool   `json:"registered"`
	Blob       []byte `json:"blob,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	doc TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a sqlite-backed session store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the session database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply session schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the persisted session. A missing record yields an empty,
// unregistered session. An unparsable record yields ErrStoreCorrupt.
func (s *Store) Load() (Session, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM session WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return sess, nil
}

// Persist writes the session record. Idempotent: persisting the same session
// twice is a no-op beyond the timestamp.
func (s *Store) Persist(sess Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO session (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		string(doc), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Wipe removes the persisted session. Silent when nothing is stored.
func (s *Store) Wipe() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to wipe session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// corruptForTest overwrites the stored document with garbage. Test hook.
func (s *Store) corruptForTest() error {
	_, err := s.db.Exec(`
		INSERT INTO session (id, doc) VALUES (1, '{not json')
		ON CONFLICT(id) DO UPDATE SET doc = '{not json'`)
	return err
}
