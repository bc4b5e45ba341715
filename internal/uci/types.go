package uci

const (
	// DefaultDepth is substituted when a caller requests depth 0 (or below),
	// and is the fallback depth for records the engine reported without one.
	DefaultDepth = 18

	// MaxMultiPV bounds how many ranked lines may be requested; requests are
	// clamped into [1, MaxMultiPV] before reaching the engine.
	MaxMultiPV = 10
)

// Line is one ranked principal variation of a finished analysis.
type Line struct {
	// Rank is the 1-based MultiPV ordinal this line was reported under.
	Rank int
	// Depth the record was observed at; never zero in a returned result.
	Depth int
	// ScoreCP is the centipawn evaluation, nil when the engine reported a
	// mate score (or nothing) for this line.
	ScoreCP *int
	// ScoreMate is the forced-mate distance, negative when the side to move
	// is being mated. Nil when absent.
	ScoreMate *int
	// PV holds the protocol-native move tokens exactly as streamed.
	PV []string
	// SAN is the display translation of PV. It may be shorter than PV when
	// translation stopped at an unresolvable token, and empty when the
	// starting position itself did not parse.
	SAN []string
}

// Analysis is the finalized result of one analyze call: the primary line's
// summary fields plus every ranked line, ordered by rank ascending.
type Analysis struct {
	Depth     int
	ScoreCP   *int
	ScoreMate *int
	// BestMove prefers the primary line's first translated move, then the
	// engine's terminal bestmove token, then the primary line's first
	// protocol token. Empty only if all three are unavailable.
	BestMove string
	// PV is the primary line's protocol-native move tokens.
	PV []string
	// Lines holds every populated rank; ranks are unique and sorted. Never
	// empty on success.
	Lines []Line
}

// Translator converts protocol move tokens into display notation, replaying
// them from the given position. Implementations truncate at the first token
// that cannot be resolved and never fail; an unparseable position yields an
// empty sequence.
type Translator func(fen string, moves []string) []string

func normalizeDepth(depth int) int {
	if depth <= 0 {
		return DefaultDepth
	}
	return depth
}

func normalizeMultiPV(multipv int) int {
	if multipv < 1 {
		return 1
	}
	if multipv > MaxMultiPV {
		return MaxMultiPV
	}
	return multipv
}
