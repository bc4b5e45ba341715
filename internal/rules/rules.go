// Package rules wraps the notnil/chess move rules for the rest of the
// backend: position parsing, principal-variation translation, single-move
// application, and legal-move listings. The engine layer treats positions as
// opaque FEN strings and calls in here only to turn protocol move tokens
// into display notation.
package rules

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/notnil/chess"
)

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrInvalidUCI  = errors.New("invalid UCI move")
	ErrIllegalMove = errors.New("illegal move")
)

var uciMovePattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// AppliedMove is the outcome of playing one move: its display notation, its
// canonical protocol spelling, and the position it leads to.
type AppliedMove struct {
	SAN string
	UCI string
	FEN string
}

func positionFromFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFEN, fen)
	}
	return chess.NewGame(opt).Position(), nil
}

// moveFromUCI resolves a protocol move token against the position. Syntax
// failures and legality failures are distinct errors; the returned move is
// the fully-tagged legal move, so SAN encoding carries capture and check
// marks.
func moveFromUCI(pos *chess.Position, token string) (*chess.Move, error) {
	if !uciMovePattern.MatchString(token) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUCI, token)
	}
	decoded, err := chess.UCINotation{}.Decode(pos, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrIllegalMove, token)
	}
	for _, legal := range pos.ValidMoves() {
		if legal.S1() == decoded.S1() && legal.S2() == decoded.S2() && legal.Promo() == decoded.Promo() {
			return legal, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrIllegalMove, token)
}

// TranslatePV converts engine move tokens into SAN by replaying them from
// fen. Translation stops silently at the first token that does not parse or
// is not legal in the evolving position; already-translated moves are kept.
// An unparseable fen yields an empty sequence without error. This is a
// display-quality degrade only, never a failure: callers always retain the
// protocol-native tokens.
func TranslatePV(fen string, moves []string) []string {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return nil
	}

	san := make([]string, 0, len(moves))
	for _, token := range moves {
		mv, err := moveFromUCI(pos, token)
		if err != nil {
			break
		}
		san = append(san, chess.AlgebraicNotation{}.Encode(pos, mv))
		pos = pos.Update(mv)
	}
	return san
}

// ApplyUCI plays one UCI move on the position described by fen.
func ApplyUCI(fen, token string) (*AppliedMove, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return nil, err
	}
	mv, err := moveFromUCI(pos, token)
	if err != nil {
		return nil, err
	}

	san := chess.AlgebraicNotation{}.Encode(pos, mv)
	canonical := chess.UCINotation{}.Encode(pos, mv)
	next := pos.Update(mv)

	return &AppliedMove{SAN: san, UCI: canonical, FEN: next.String()}, nil
}

// LegalMoves lists every legal move of the position in protocol notation.
func LegalMoves(fen string) ([]string, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return nil, err
	}

	valid := pos.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, mv := range valid {
		out = append(out, chess.UCINotation{}.Encode(pos, mv))
	}
	return out, nil
}
