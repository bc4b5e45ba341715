package uci

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// awaitTokenMaxLines bounds how many lines awaitToken will scan for an
	// expected token. The bound substitutes for a wall-clock timeout: it
	// limits resource consumption against a misbehaving engine, not time.
	awaitTokenMaxLines = 20000

	// analysisMaxLines bounds the analysis read loop the same way.
	analysisMaxLines = 50000
)

// lineSource is the reading half of the transport, split out so the
// aggregation logic can be exercised against scripted streams.
type lineSource interface {
	readLine() (string, error)
}

// awaitToken reads lines until one, trimmed, equals the expected token.
// Reaching EOF first or exhausting the line budget is a protocol error;
// anything else on the stream is skipped.
func awaitToken(src lineSource, token string, maxLines int) error {
	for i := 0; i < maxLines; i++ {
		line, err := src.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return protocolErrorf("engine closed output while waiting for '%s'", token)
			}
			return fmt.Errorf("read engine output: %w", err)
		}
		if strings.TrimSpace(line) == token {
			return nil
		}
	}
	return protocolErrorf("did not receive '%s' from engine", token)
}

// betterInfo reports whether candidate should replace current as the best
// record for a rank: strictly deeper always wins, and at equal depth a record
// carrying moves beats a bare score-only record. Records without a depth
// compare as depth 0.
func betterInfo(candidate, current infoLine) bool {
	cd, cur := candidate.depthValue(), current.depthValue()
	return cd > cur || (cd == cur && len(candidate.pv) > 0 && len(current.pv) == 0)
}

// collectAnalysis consumes the output stream of one go command: info lines
// feed the per-rank best-record map, the terminal bestmove line ends the
// loop. The map lives on this call's stack and is never shared, so no
// locking is involved.
func collectAnalysis(src lineSource, translate Translator, fen string, requestedDepth, requestedWidth int) (*Analysis, error) {
	bestByRank := make(map[int]infoLine)
	terminalMove := ""
	sawTerminal := false

	for i := 0; i < analysisMaxLines && !sawTerminal; i++ {
		raw, err := src.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, protocolErrorf("engine closed output before sending bestmove")
			}
			return nil, fmt.Errorf("read engine output: %w", err)
		}

		line := strings.TrimSpace(raw)
		if info, ok := parseInfoLine(line); ok {
			if info.rank == 0 || info.rank > requestedWidth {
				continue
			}
			current, exists := bestByRank[info.rank]
			if !exists || betterInfo(info, current) {
				bestByRank[info.rank] = info
			}
			continue
		}

		if strings.HasPrefix(line, "bestmove") {
			fields := strings.Fields(line)
			if len(fields) > 1 && fields[1] != "(none)" {
				terminalMove = fields[1]
			}
			sawTerminal = true
		}
	}

	if !sawTerminal {
		return nil, protocolErrorf("did not receive 'bestmove' from engine")
	}
	if len(bestByRank) == 0 {
		return nil, protocolErrorf("engine returned no analysis info for this position")
	}

	ranks := make([]int, 0, len(bestByRank))
	for rank := range bestByRank {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	lines := make([]Line, 0, len(ranks))
	for _, rank := range ranks {
		info := bestByRank[rank]
		line := Line{
			Rank:  rank,
			Depth: requestedDepth,
			PV:    info.pv,
		}
		if info.hasDepth {
			line.Depth = info.depth
		}
		if info.hasCP {
			v := info.scoreCP
			line.ScoreCP = &v
		}
		if info.hasMate {
			v := info.scoreMate
			line.ScoreMate = &v
		}
		if translate != nil {
			line.SAN = translate(fen, info.pv)
		}
		lines = append(lines, line)
	}

	// Ranks are sorted and rank 0 was filtered out, so when rank 1 was ever
	// populated it is lines[0]; otherwise the lowest available rank is.
	primary := lines[0]

	best := ""
	switch {
	case len(primary.SAN) > 0:
		best = primary.SAN[0]
	case terminalMove != "":
		best = terminalMove
	case len(primary.PV) > 0:
		best = primary.PV[0]
	}

	return &Analysis{
		Depth:     primary.Depth,
		ScoreCP:   primary.ScoreCP,
		ScoreMate: primary.ScoreMate,
		BestMove:  best,
		PV:        primary.PV,
		Lines:     lines,
	}, nil
}
