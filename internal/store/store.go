// Package store persists model checkpoints. Each checkpoint is a gob-encoded
// snapshot stored in a SQLite registry keyed by version tag, with metadata
// alongside for listing without decoding.
package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"neurosym/internal/logging"
	"neurosym/internal/model"
)

// ErrNotFound is returned when no checkpoint exists for a version.
var ErrNotFound = errors.New("store: checkpoint not found")

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	version    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	snapshot   BLOB NOT NULL
);
`

// Info describes a stored checkpoint without its payload.
type Info struct {
	Version   string
	Name      string
	CreatedAt time.Time
}

// Store is a SQLite-backed checkpoint registry.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save snapshots the classifier and writes it under its version tag. Saving
// the same version twice overwrites the earlier payload.
func (s *Store) Save(c *model.Classifier, name string) (string, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := model.EncodeSnapshot(&buf, snap); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO checkpoints (version, name, created_at, snapshot) VALUES (?, ?, ?, ?)`,
		snap.Version, name, time.Now().UnixMilli(), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store: save %s: %w", snap.Version, err)
	}

	logging.Store("saved checkpoint %s (%s, %d bytes)", snap.Version, name, buf.Len())
	return snap.Version, nil
}

// Load reconstructs the classifier stored under version.
func (s *Store) Load(version string) (*model.Classifier, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT snapshot FROM checkpoints WHERE version = ?`, version).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, version)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", version, err)
	}

	snap, err := model.DecodeSnapshot(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	return model.FromSnapshot(snap)
}

// LoadLatest reconstructs the most recently saved checkpoint.
func (s *Store) LoadLatest() (*model.Classifier, error) {
	var version string
	err := s.db.QueryRow(`SELECT version FROM checkpoints ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest: %w", err)
	}
	return s.Load(version)
}

// List returns checkpoint descriptors, newest first.
func (s *Store) List() ([]Info, error) {
	rows, err := s.db.Query(`SELECT version, name, created_at FROM checkpoints ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var ts int64
		if err := rows.Scan(&info.Version, &info.Name, &ts); err != nil {
			return nil, fmt.Errorf("store: scan checkpoint: %w", err)
		}
		info.CreatedAt = time.UnixMilli(ts)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a checkpoint by version.
func (s *Store) Delete(version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM checkpoints WHERE version = ?`, version)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", version, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, version)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
