package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// dedupeIndex makes re-imports idempotent: two rows are the same game when
// every header and the trimmed movetext agree (NULL folding to '').
const dedupeIndex = `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_games_exact_unique
	ON games(
		COALESCE(event, ''),
		COALESCE(site, ''),
		COALESCE(date, ''),
		COALESCE(white, ''),
		COALESCE(black, ''),
		COALESCE(result, ''),
		COALESCE(eco, ''),
		COALESCE(TRIM(pgn), '')
	)`

// deleteExactDuplicates keeps the oldest row of every exact-duplicate group.
// Needed before the unique index can be created over a legacy database.
const deleteExactDuplicates = `
	DELETE FROM games
	WHERE rowid NOT IN (
		SELECT MIN(rowid)
		FROM games
		GROUP BY
			COALESCE(event, ''),
			COALESCE(site, ''),
			COALESCE(date, ''),
			COALESCE(white, ''),
			COALESCE(black, ''),
			COALESCE(result, ''),
			COALESCE(eco, ''),
			COALESCE(TRIM(pgn), '')
	)`

// deleteStaleEmptyMovetext drops header-only rows once a row with the same
// headers and real movetext exists, so a corrected export supersedes a
// truncated one.
const deleteStaleEmptyMovetext = `
	DELETE FROM games AS stale
	WHERE COALESCE(TRIM(stale.pgn), '') = ''
	  AND EXISTS (
	      SELECT 1
	      FROM games AS fresh
	      WHERE fresh.rowid != stale.rowid
	        AND COALESCE(TRIM(fresh.pgn), '') <> ''
	        AND COALESCE(fresh.event, '') = COALESCE(stale.event, '')
	        AND COALESCE(fresh.site, '') = COALESCE(stale.site, '')
	        AND COALESCE(fresh.date, '') = COALESCE(stale.date, '')
	        AND COALESCE(fresh.white, '') = COALESCE(stale.white, '')
	        AND COALESCE(fresh.black, '') = COALESCE(stale.black, '')
	        AND COALESCE(fresh.result, '') = COALESCE(stale.result, '')
	        AND COALESCE(fresh.eco, '') = COALESCE(stale.eco, '')
	  )`

// ImportTx is the transactional surface one import run works through. All
// inserts and the bracketing cleanups commit atomically or not at all.
type ImportTx struct {
	tx     *sql.Tx
	insert *sql.Stmt
}

// BeginImport opens the import transaction. Pre-existing exact duplicates are
// removed first so the dedupe index can always be ensured.
func (s *Store) BeginImport() (*ImportTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}

	if _, err := tx.Exec(deleteExactDuplicates); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("dedupe existing rows: %w", err)
	}
	if _, err := tx.Exec(dedupeIndex); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ensure dedupe index: %w", err)
	}

	insert, err := tx.Prepare(`
		INSERT OR IGNORE INTO games (event, site, date, white, black, result, eco, pgn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	return &ImportTx{tx: tx, insert: insert}, nil
}

// Insert stores one game, reporting false when the dedupe index ignored it.
// Whitespace-only movetext is stored as NULL.
func (t *ImportTx) Insert(g Game) (bool, error) {
	movetext := strings.TrimSpace(g.Movetext)

	res, err := t.insert.Exec(
		nullable(g.Event),
		nullable(g.Site),
		nullable(g.Date),
		nullable(g.White),
		nullable(g.Black),
		nullable(g.Result),
		nullable(g.ECO),
		nullable(movetext),
	)
	if err != nil {
		return false, fmt.Errorf("insert game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert game: %w", err)
	}
	return n == 1, nil
}

// Commit runs the closing cleanups and commits. The stale-movetext sweep runs
// before the duplicate sweep so rows it removes cannot resurrect duplicates.
func (t *ImportTx) Commit() error {
	if _, err := t.tx.Exec(deleteStaleEmptyMovetext); err != nil {
		t.tx.Rollback()
		return fmt.Errorf("drop stale header-only rows: %w", err)
	}
	if _, err := t.tx.Exec(deleteExactDuplicates); err != nil {
		t.tx.Rollback()
		return fmt.Errorf("dedupe imported rows: %w", err)
	}
	if _, err := t.tx.Exec(dedupeIndex); err != nil {
		t.tx.Rollback()
		return fmt.Errorf("ensure dedupe index: %w", err)
	}
	if err := t.insert.Close(); err != nil {
		t.tx.Rollback()
		return fmt.Errorf("close insert statement: %w", err)
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Rollback abandons the import run.
func (t *ImportTx) Rollback() error {
	return t.tx.Rollback()
}
