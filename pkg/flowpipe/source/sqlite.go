package source

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps flow definitions in a SQLite table keyed by
// (mode, name). It is suitable for single-process deployments that manage
// flows at run time instead of shipping definition files.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if necessary) a definition store at path.
// Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL keeps concurrent readers cheap while definitions are updated.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flow_definitions (
			mode TEXT NOT NULL,
			name TEXT NOT NULL,
			definition BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (mode, name)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put stores or replaces the definition for (mode, name).
func (s *SQLiteStore) Put(mode, name string, definition []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO flow_definitions (mode, name, definition, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mode, name) DO UPDATE SET
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`, mode, name, definition, time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("put flow definition: %w", err)
	}
	return nil
}

// Read implements Source.
func (s *SQLiteStore) Read(mode, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT definition FROM flow_definitions
		WHERE mode = ? AND name = ?
	`, mode, name).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, mode, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read flow definition: %w", err)
	}
	return data, nil
}

// List implements Source. Results are ordered by mode, then name.
func (s *SQLiteStore) List() ([]Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT mode, name FROM flow_definitions
		ORDER BY mode, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list flow definitions: %w", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.Mode, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan flow reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow definitions: %w", err)
	}
	return refs, nil
}

// Delete removes the definition for (mode, name). Deleting a missing
// definition is a no-op.
func (s *SQLiteStore) Delete(mode, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`
		DELETE FROM flow_definitions WHERE mode = ? AND name = ?
	`, mode, name); err != nil {
		return fmt.Errorf("delete flow definition: %w", err)
	}
	return nil
}

// Close releases the database handle. Further calls return ErrStoreClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
