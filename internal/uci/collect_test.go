package uci

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptSource replays a fixed sequence of lines, then finalErr (io.EOF when
// unset). It stands in for the transport in aggregation tests.
type scriptSource struct {
	lines    []string
	next     int
	finalErr error
}

func (s *scriptSource) readLine() (string, error) {
	if s.next < len(s.lines) {
		line := s.lines[s.next]
		s.next++
		return line, nil
	}
	if s.finalErr != nil {
		return "", s.finalErr
	}
	return "", io.EOF
}

// endlessSource never runs out of lines, for exercising line budgets.
type endlessSource struct {
	line string
}

func (s *endlessSource) readLine() (string, error) { return s.line, nil }

func intp(v int) *int { return &v }

func TestAwaitToken_SkipsUntilMatch(t *testing.T) {
	src := &scriptSource{lines: []string{
		"id name mockuci 1.0",
		"option name MultiPV type spin default 1 min 1 max 500",
		"  uciok  ",
	}}
	require.NoError(t, awaitToken(src, "uciok", awaitTokenMaxLines))
}

func TestAwaitToken_EOFIsProtocolError(t *testing.T) {
	src := &scriptSource{lines: []string{"id name mockuci 1.0"}}
	err := awaitToken(src, "uciok", awaitTokenMaxLines)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "engine closed output while waiting for 'uciok'", err.Error())
}

func TestAwaitToken_LineBudgetIsProtocolError(t *testing.T) {
	err := awaitToken(&endlessSource{line: "info string chatter"}, "readyok", awaitTokenMaxLines)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "did not receive 'readyok' from engine", err.Error())
}

func TestAwaitToken_ReadErrorIsNotProtocolError(t *testing.T) {
	cause := errors.New("pipe burst")
	err := awaitToken(&scriptSource{finalErr: cause}, "uciok", awaitTokenMaxLines)

	require.ErrorIs(t, err, cause)
	var perr *ProtocolError
	assert.False(t, errors.As(err, &perr))
}

func TestCollectAnalysis_KeepsDeepestRecordPerRank(t *testing.T) {
	shallowFirst := []string{
		"info depth 18 multipv 1 score cp 12 pv e2e4 e7e5",
		"info depth 21 multipv 1 score cp 25 pv d2d4 d7d5 c2c4",
		"bestmove d2d4",
	}
	deepFirst := []string{shallowFirst[1], shallowFirst[0], shallowFirst[2]}

	for name, lines := range map[string][]string{"shallow first": shallowFirst, "deep first": deepFirst} {
		t.Run(name, func(t *testing.T) {
			analysis, err := collectAnalysis(&scriptSource{lines: lines}, nil, "", 18, 1)
			require.NoError(t, err)

			assert.Equal(t, 21, analysis.Depth)
			assert.Equal(t, intp(25), analysis.ScoreCP)
			assert.Equal(t, []string{"d2d4", "d7d5", "c2c4"}, analysis.PV)
		})
	}
}

func TestCollectAnalysis_EqualDepthPrefersRecordWithMoves(t *testing.T) {
	for name, lines := range map[string][]string{
		"bare score first": {
			"info depth 20 multipv 1 score cp 50",
			"info depth 20 multipv 1 score cp 40 pv e2e4",
			"bestmove e2e4",
		},
		"bare score last": {
			"info depth 20 multipv 1 score cp 40 pv e2e4",
			"info depth 20 multipv 1 score cp 50",
			"bestmove e2e4",
		},
	} {
		t.Run(name, func(t *testing.T) {
			analysis, err := collectAnalysis(&scriptSource{lines: lines}, nil, "", 18, 1)
			require.NoError(t, err)

			assert.Equal(t, intp(40), analysis.ScoreCP)
			assert.Equal(t, []string{"e2e4"}, analysis.PV)
		})
	}
}

func TestCollectAnalysis_NoUsableInfoIsProtocolError(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info string NNUE evaluation enabled",
		"bestmove e2e4",
	}}
	_, err := collectAnalysis(src, nil, "", 18, 1)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "engine returned no analysis info for this position", err.Error())
}

func TestCollectAnalysis_EOFBeforeBestmove(t *testing.T) {
	src := &scriptSource{lines: []string{"info depth 10 score cp 1 pv e2e4"}}
	_, err := collectAnalysis(src, nil, "", 18, 1)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "engine closed output before sending bestmove", err.Error())
}

func TestCollectAnalysis_LineBudgetWithoutBestmove(t *testing.T) {
	_, err := collectAnalysis(&endlessSource{line: "info string noise"}, nil, "", 18, 1)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "did not receive 'bestmove' from engine", err.Error())
}

func TestCollectAnalysis_FiltersRanksOutsideRequestedWidth(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info depth 9 multipv 0 score cp 99 pv h2h4",
		"info depth 9 multipv 1 score cp 30 pv e2e4",
		"info depth 9 multipv 2 score cp 20 pv d2d4",
		"info depth 9 multipv 3 score cp 10 pv c2c4",
		"bestmove e2e4",
	}}
	analysis, err := collectAnalysis(src, nil, "", 18, 2)
	require.NoError(t, err)

	want := []Line{
		{Rank: 1, Depth: 9, ScoreCP: intp(30), PV: []string{"e2e4"}},
		{Rank: 2, Depth: 9, ScoreCP: intp(20), PV: []string{"d2d4"}},
	}
	if diff := cmp.Diff(want, analysis.Lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectAnalysis_MissingDepthDefaultsToRequested(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info multipv 1 score cp 5 pv e2e4",
		"bestmove e2e4",
	}}
	analysis, err := collectAnalysis(src, nil, "", DefaultDepth, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultDepth, analysis.Depth)
	assert.Equal(t, DefaultDepth, analysis.Lines[0].Depth)
}

func TestCollectAnalysis_PrimaryIsLowestPopulatedRank(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info depth 11 multipv 3 score cp -8 pv c2c4",
		"info depth 11 multipv 2 score mate 4 pv d2d4",
		"bestmove d2d4",
	}}
	analysis, err := collectAnalysis(src, nil, "", 18, 3)
	require.NoError(t, err)

	require.Len(t, analysis.Lines, 2)
	assert.Equal(t, 2, analysis.Lines[0].Rank)
	assert.Equal(t, 3, analysis.Lines[1].Rank)
	assert.Equal(t, intp(4), analysis.ScoreMate)
	assert.Nil(t, analysis.ScoreCP)
	assert.Equal(t, []string{"d2d4"}, analysis.PV)
}

func TestCollectAnalysis_BestMovePrefersTranslatedMove(t *testing.T) {
	var gotFEN string
	var gotMoves []string
	translate := func(fen string, moves []string) []string {
		gotFEN = fen
		gotMoves = append([]string(nil), moves...)
		return []string{"e4", "e5"}
	}

	src := &scriptSource{lines: []string{
		"info depth 12 score cp 30 pv e2e4 e7e5",
		"bestmove e2e4 ponder e7e5",
	}}
	analysis, err := collectAnalysis(src, translate, "fen-under-analysis", 18, 1)
	require.NoError(t, err)

	assert.Equal(t, "e4", analysis.BestMove)
	assert.Equal(t, []string{"e4", "e5"}, analysis.Lines[0].SAN)
	assert.Equal(t, "fen-under-analysis", gotFEN)
	assert.Equal(t, []string{"e2e4", "e7e5"}, gotMoves)
}

func TestCollectAnalysis_BestMoveFallsBackToTerminalToken(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info depth 12 score cp 30 pv d2d4",
		"bestmove e2e4 ponder e7e5",
	}}
	analysis, err := collectAnalysis(src, nil, "", 18, 1)
	require.NoError(t, err)

	// No translation available: the engine's own terminal token wins over
	// the PV head.
	assert.Equal(t, "e2e4", analysis.BestMove)
}

func TestCollectAnalysis_BestmoveNoneFallsBackToPV(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info depth 12 score cp 30 pv d2d4",
		"bestmove (none)",
	}}
	analysis, err := collectAnalysis(src, nil, "", 18, 1)
	require.NoError(t, err)
	assert.Equal(t, "d2d4", analysis.BestMove)
}

func TestCollectAnalysis_BestMoveEmptyWhenNothingAvailable(t *testing.T) {
	src := &scriptSource{lines: []string{
		"info depth 9 score cp 11",
		"bestmove (none)",
	}}
	analysis, err := collectAnalysis(src, nil, "", 18, 1)
	require.NoError(t, err)
	assert.Equal(t, "", analysis.BestMove)
	assert.Empty(t, analysis.PV)
}

func TestCollectAnalysis_LateBestmoveWithinBudget(t *testing.T) {
	lines := make([]string, 0, 102)
	for i := 0; i < 100; i++ {
		lines = append(lines, fmt.Sprintf("info string progress %d", i))
	}
	lines = append(lines, "info depth 7 score cp 2 pv g1f3", "bestmove g1f3")

	analysis, err := collectAnalysis(&scriptSource{lines: lines}, nil, "", 18, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, analysis.Depth)
}
