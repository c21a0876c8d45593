// Package cache stores compiled bytecode images keyed by source hash, so
// unchanged sources skip the compile pipeline.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrMiss indicates no cached image exists for the source.
var ErrMiss = errors.New("cache miss")

// Entry is one cached compile.
type Entry struct {
	SourceHash    string
	CompilationID string
	Image         []byte
	CreatedAt     time.Time
}

// Store is a SQLite-backed compile cache.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (and if needed bootstraps) a cache database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		source_hash    TEXT PRIMARY KEY,
		compilation_id TEXT NOT NULL,
		image          BLOB NOT NULL,
		created_at     INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating images table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// OpenDefault opens the cache at $NOODLE_CACHE_DB, falling back to
// ~/.noodle/cache.db.
func OpenDefault() (*Store, error) {
	dbPath := os.Getenv("NOODLE_CACHE_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		dir := filepath.Join(home, ".noodle")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
		dbPath = filepath.Join(dir, "cache.db")
	}
	return Open(dbPath)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Key hashes source text into its cache key.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Put stores a compiled image under the source's hash, replacing any
// earlier compile of the same source.
func (s *Store) Put(source, compilationID string, image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO images (source_hash, compilation_id, image, created_at) VALUES (?, ?, ?, ?)",
		Key(source), compilationID, image, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// Get retrieves the cached image for source text. Returns ErrMiss when the
// source has not been compiled before.
func (s *Store) Get(source string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{SourceHash: Key(source)}
	var createdAt int64
	err := s.db.QueryRow(
		"SELECT compilation_id, image, created_at FROM images WHERE source_hash = ?",
		entry.SourceHash,
	).Scan(&entry.CompilationID, &entry.Image, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	entry.CreatedAt = time.Unix(createdAt, 0)
	return entry, nil
}

// Delete removes the cached image for source text. Deleting an absent
// entry is not an error.
func (s *Store) Delete(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM images WHERE source_hash = ?", Key(source)); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// Purge drops every cached image.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM images"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

// Len reports the number of cached images.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return n, nil
}
