// Package workspace persists analysis trees: variations, comments, and
// annotation glyphs a user builds while studying one stored game. Workspaces
// live in their own database, separate from the games store, so study
// material survives re-imports of the game collection.
package workspace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Sentinel errors. ErrInvalidInput wraps a reason; ErrNotFound wraps the
// workspace id.
var (
	ErrInvalidInput = errors.New("invalid workspace input")
	ErrNotFound     = errors.New("workspace not found")
)

// Node is one position in an analysis tree. The root has no ParentID and no
// move; every other node records the move that produced its FEN. Empty
// string fields mean absent.
type Node struct {
	ID        string
	ParentID  string
	SAN       string
	UCI       string
	FEN       string
	Comment   string
	NAGs      []string
	SortIndex int
}

// NewNode mints a node with a fresh unique id.
func NewNode(parentID, san, uci, fen string) Node {
	return Node{
		ID:       uuid.NewString(),
		ParentID: parentID,
		SAN:      san,
		UCI:      uci,
		FEN:      fen,
	}
}

// Summary is the workspace header row.
type Summary struct {
	ID            int64
	SourceDBPath  string
	GameID        int64
	Name          string
	RootNodeID    string
	CurrentNodeID string
	CreatedAt     int64
	UpdatedAt     int64
}

// Workspace is a fully loaded workspace: header plus every node, roots
// first.
type Workspace struct {
	Summary Summary
	Nodes   []Node
}

// Store wraps the workspace database.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Open creates the workspace database (and parent directory) if needed.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Node rows must follow their workspace on delete.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("pragma not applied", zap.Error(err))
	}

	s := &Store{db: db, path: path, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_workspaces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_db_path TEXT NOT NULL,
			game_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			root_node_id TEXT NOT NULL,
			current_node_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_analysis_workspaces_game
		ON analysis_workspaces(source_db_path, game_id, updated_at DESC, id DESC);

		CREATE TABLE IF NOT EXISTS analysis_nodes (
			workspace_id INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			parent_node_id TEXT,
			san TEXT,
			uci TEXT,
			fen TEXT NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			nags TEXT NOT NULL DEFAULT '',
			sort_index INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (workspace_id, node_id),
			FOREIGN KEY (workspace_id) REFERENCES analysis_workspaces(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_analysis_nodes_parent
		ON analysis_nodes(workspace_id, parent_node_id, sort_index, node_id);
	`)
	return err
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func invalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Save stores a new workspace with its full node payload. Root, current, and
// every parent reference must resolve inside the payload; the insert is
// atomic.
func (s *Store) Save(sourceDBPath string, gameID int64, name, rootNodeID, currentNodeID string, nodes []Node) (int64, error) {
	sourceDBPath = strings.TrimSpace(sourceDBPath)
	name = strings.TrimSpace(name)
	rootNodeID = strings.TrimSpace(rootNodeID)
	currentNodeID = strings.TrimSpace(currentNodeID)

	if sourceDBPath == "" {
		return 0, invalidInputf("source database path is required")
	}
	if name == "" {
		return 0, invalidInputf("workspace name is required")
	}
	if rootNodeID == "" {
		return 0, invalidInputf("root node id is required")
	}
	if len(nodes) == 0 {
		return 0, invalidInputf("at least one analysis node is required")
	}

	ids := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		id := strings.TrimSpace(node.ID)
		if id == "" {
			return 0, invalidInputf("node id cannot be empty")
		}
		if strings.TrimSpace(node.FEN) == "" {
			return 0, invalidInputf("node fen cannot be empty")
		}
		ids[id] = true
	}

	if !ids[rootNodeID] {
		return 0, invalidInputf("root node %q was not found in node payload", rootNodeID)
	}
	if currentNodeID != "" && !ids[currentNodeID] {
		return 0, invalidInputf("current node %q was not found in node payload", currentNodeID)
	}
	for _, node := range nodes {
		if parent := strings.TrimSpace(node.ParentID); parent != "" && !ids[parent] {
			return 0, invalidInputf("parent node %q for node %q was not found in node payload", parent, node.ID)
		}
	}

	now := time.Now().Unix()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO analysis_workspaces (
			source_db_path, game_id, name, root_node_id, current_node_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sourceDBPath, gameID, name, rootNodeID, nullable(currentNodeID), now, now)
	if err != nil {
		return 0, fmt.Errorf("insert workspace: %w", err)
	}
	workspaceID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert workspace: %w", err)
	}

	insert, err := tx.Prepare(`
		INSERT INTO analysis_nodes (
			workspace_id, node_id, parent_node_id, san, uci, fen, comment, nags, sort_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare node insert: %w", err)
	}
	defer insert.Close()

	for _, node := range nodes {
		_, err := insert.Exec(
			workspaceID,
			strings.TrimSpace(node.ID),
			nullable(strings.TrimSpace(node.ParentID)),
			nullable(strings.TrimSpace(node.SAN)),
			nullable(strings.TrimSpace(node.UCI)),
			strings.TrimSpace(node.FEN),
			node.Comment,
			serializeNAGs(node.NAGs),
			node.SortIndex,
		)
		if err != nil {
			return 0, fmt.Errorf("insert node %q: %w", node.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return workspaceID, nil
}

// Rename changes a workspace's display name and bumps its updated time.
func (s *Store) Rename(workspaceID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidInputf("workspace name is required")
	}

	res, err := s.db.Exec(
		"UPDATE analysis_workspaces SET name = ?, updated_at = ? WHERE id = ?",
		name, time.Now().Unix(), workspaceID)
	if err != nil {
		return fmt.Errorf("rename workspace: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename workspace: %w", err)
	}
	if changed == 0 {
		return fmt.Errorf("workspace %d: %w", workspaceID, ErrNotFound)
	}
	return nil
}

// Delete removes a workspace; its nodes cascade.
func (s *Store) Delete(workspaceID int64) error {
	res, err := s.db.Exec("DELETE FROM analysis_workspaces WHERE id = ?", workspaceID)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if changed == 0 {
		return fmt.Errorf("workspace %d: %w", workspaceID, ErrNotFound)
	}
	return nil
}

// List returns the workspaces saved for one game, most recently touched
// first.
func (s *Store) List(sourceDBPath string, gameID int64) ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT id, source_db_path, game_id, name, root_node_id, current_node_id, created_at, updated_at
		FROM analysis_workspaces
		WHERE source_db_path = ? AND game_id = ?
		ORDER BY updated_at DESC, id DESC`,
		strings.TrimSpace(sourceDBPath), gameID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return out, nil
}

// Load returns one workspace with its nodes, parents before children.
func (s *Store) Load(workspaceID int64) (*Workspace, error) {
	row := s.db.QueryRow(`
		SELECT id, source_db_path, game_id, name, root_node_id, current_node_id, created_at, updated_at
		FROM analysis_workspaces
		WHERE id = ?`, workspaceID)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace %d: %w", workspaceID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT node_id, parent_node_id, san, uci, fen, comment, nags, sort_index
		FROM analysis_nodes
		WHERE workspace_id = ?
		ORDER BY
			CASE WHEN parent_node_id IS NULL THEN 0 ELSE 1 END ASC,
			COALESCE(parent_node_id, '') ASC,
			sort_index ASC,
			node_id ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load workspace nodes: %w", err)
	}
	defer rows.Close()

	ws := &Workspace{Summary: summary}
	for rows.Next() {
		var node Node
		var parent, san, uci sql.NullString
		var nags string
		if err := rows.Scan(&node.ID, &parent, &san, &uci, &node.FEN, &node.Comment, &nags, &node.SortIndex); err != nil {
			return nil, fmt.Errorf("scan workspace node: %w", err)
		}
		node.ParentID = parent.String
		node.SAN = san.String
		node.UCI = uci.String
		node.NAGs = parseNAGs(nags)
		ws.Nodes = append(ws.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load workspace nodes: %w", err)
	}
	return ws, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (Summary, error) {
	var summary Summary
	var current sql.NullString
	err := row.Scan(
		&summary.ID, &summary.SourceDBPath, &summary.GameID, &summary.Name,
		&summary.RootNodeID, &current, &summary.CreatedAt, &summary.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("scan workspace: %w", err)
	}
	summary.CurrentNodeID = current.String
	return summary, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// serializeNAGs stores annotation glyphs comma-joined, dropping blanks.
func serializeNAGs(nags []string) string {
	kept := make([]string, 0, len(nags))
	for _, nag := range nags {
		if trimmed := strings.TrimSpace(nag); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ",")
}

func parseNAGs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
