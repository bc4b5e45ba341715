// Package replay reconstructs the position timeline of a stored game from
// its movetext.
package replay

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// InvalidSANError marks the first movetext token that could not be resolved
// against the position it was played from. Ply is 1-based.
type InvalidSANError struct {
	Ply int
	SAN string
}

func (e *InvalidSANError) Error() string {
	return fmt.Sprintf("invalid SAN %q at ply %d", e.SAN, e.Ply)
}

// MovetextSource yields the movetext for a game id. store.Store satisfies it;
// its not-found and missing-movetext errors pass through Game untouched.
type MovetextSource interface {
	GameMovetext(id int64) (string, error)
}

// Timeline is the replayed game: FENs has one entry per position including
// the start, SANs and UCIs one entry per move.
type Timeline struct {
	FENs []string
	SANs []string
	UCIs []string
}

// Game replays a stored game move by move from the standard start position.
func Game(src MovetextSource, id int64) (*Timeline, error) {
	movetext, err := src.GameMovetext(id)
	if err != nil {
		return nil, err
	}

	pos := chess.NewGame().Position()
	timeline := &Timeline{FENs: []string{pos.String()}}

	for i, token := range strings.Fields(movetext) {
		mv, err := chess.AlgebraicNotation{}.Decode(pos, token)
		if err != nil {
			return nil, &InvalidSANError{Ply: i + 1, SAN: token}
		}
		uci := chess.UCINotation{}.Encode(pos, mv)

		pos = pos.Update(mv)
		timeline.FENs = append(timeline.FENs, pos.String())
		timeline.SANs = append(timeline.SANs, token)
		timeline.UCIs = append(timeline.UCIs, uci)
	}

	return timeline, nil
}

// GameFENs is Game reduced to the position list.
func GameFENs(src MovetextSource, id int64) ([]string, error) {
	timeline, err := Game(src, id)
	if err != nil {
		return nil, err
	}
	return timeline.FENs, nil
}
