package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for movetext retrieval. Both are wrapped with the game id.
var (
	ErrGameNotFound    = errors.New("game not found")
	ErrMissingMovetext = errors.New("game has no movetext")
)

// Game is one imported game. Header fields are empty when the PGN tag was
// absent. Movetext is populated on insert and by GameMovetext, never by
// SearchGames.
type Game struct {
	ID       int64
	Event    string
	Site     string
	Date     string
	White    string
	Black    string
	Result   string
	ECO      string
	Movetext string
}

// nullable maps an empty header to NULL so absent PGN tags stay
// distinguishable in storage.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SearchGames returns the page of games matching the filter, newest date
// first with insertion order as the tiebreaker.
func (s *Store) SearchGames(filter Filter, page Pagination) ([]Game, error) {
	where, args, err := filter.buildWhere()
	if err != nil {
		return nil, err
	}
	page = page.normalized()

	query := `
		SELECT rowid, event, site, date, white, black, result, eco
		FROM games` + where + `
		ORDER BY date DESC, rowid DESC
		LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		var event, site, date, white, black, result, eco sql.NullString
		if err := rows.Scan(&g.ID, &event, &site, &date, &white, &black, &result, &eco); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		g.Event = event.String
		g.Site = site.String
		g.Date = date.String
		g.White = white.String
		g.Black = black.String
		g.Result = result.String
		g.ECO = eco.String
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	return games, nil
}

// CountGames returns how many games match the filter, ignoring pagination.
func (s *Store) CountGames(filter Filter) (int64, error) {
	where, args, err := filter.buildWhere()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM games"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return count, nil
}

// GameMovetext returns the stored movetext for one game. A missing row and a
// row without moves are distinct failures so callers can report them apart.
func (s *Store) GameMovetext(id int64) (string, error) {
	var movetext sql.NullString
	err := s.db.QueryRow("SELECT pgn FROM games WHERE rowid = ?", id).Scan(&movetext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("game %d: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load game %d: %w", id, err)
	}
	if !movetext.Valid || strings.TrimSpace(movetext.String) == "" {
		return "", fmt.Errorf("game %d: %w", id, ErrMissingMovetext)
	}
	return movetext.String, nil
}
