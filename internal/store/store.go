// Package store persists imported games in SQLite and serves the filtered
// queries the rest of the system is built on. One Store owns one database
// file; connections are serialized through a single pooled connection so WAL
// writers never contend.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps the games database.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Open creates the database file (and its parent directory) if needed and
// ensures the schema exists. The returned Store must be closed.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Pragma failures degrade performance, not correctness.
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("pragma not applied", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, path: path, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Debug("games database ready", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			event TEXT,
			site TEXT,
			date TEXT,
			white TEXT,
			black TEXT,
			result TEXT,
			eco TEXT,
			pgn TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_games_white ON games(white);
		CREATE INDEX IF NOT EXISTS idx_games_black ON games(black);
		CREATE INDEX IF NOT EXISTS idx_games_date ON games(date);
		CREATE INDEX IF NOT EXISTS idx_games_result ON games(result);
		CREATE INDEX IF NOT EXISTS idx_games_eco ON games(eco);
		CREATE INDEX IF NOT EXISTS idx_games_event ON games(event);
		CREATE INDEX IF NOT EXISTS idx_games_site ON games(site);
	`)
	return err
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
