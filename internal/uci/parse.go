package uci

import (
	"strconv"
	"strings"
)

// infoLine is the partial result carried by a single "info" line. Scores and
// depth are optional on the wire; rank defaults to 1 when the engine omits
// the multipv keyword (single-PV mode).
type infoLine struct {
	depth     int
	hasDepth  bool
	scoreCP   int
	hasCP     bool
	scoreMate int
	hasMate   bool
	pv        []string
	rank      int
}

func (l infoLine) depthValue() int {
	if l.hasDepth {
		return l.depth
	}
	return 0
}

// parseInfoLine tokenizes one engine output line into an infoLine. Lines that
// do not start with the "info " marker are not analysis data and report ok ==
// false, as do info lines carrying neither depth, score, nor moves.
//
// Recognized keywords consume themselves plus a fixed number of argument
// tokens; everything else is skipped one token at a time so unknown engine
// extensions pass through harmlessly. "pv" is terminal: the remainder of the
// line is the move sequence, and no keyword is recognized after it (move
// tokens could otherwise collide with keywords).
func parseInfoLine(line string) (infoLine, bool) {
	if !strings.HasPrefix(line, "info ") {
		return infoLine{}, false
	}

	fields := strings.Fields(line)
	out := infoLine{rank: 1}

	for i := 1; i < len(fields); {
		switch fields[i] {
		case "depth":
			if v, ok := uintField(fields, i+1); ok {
				out.depth, out.hasDepth = v, true
			}
			i += 2
		case "multipv":
			if v, ok := uintField(fields, i+1); ok {
				out.rank = v
			}
			i += 2
		case "score":
			if i+2 < len(fields) {
				kind := fields[i+1]
				if v, err := strconv.Atoi(fields[i+2]); err == nil {
					switch kind {
					case "cp":
						out.scoreCP, out.hasCP = v, true
					case "mate":
						out.scoreMate, out.hasMate = v, true
					}
				}
			}
			i += 3
		case "pv":
			if i+1 < len(fields) {
				out.pv = append([]string(nil), fields[i+1:]...)
			}
			i = len(fields)
		default:
			i++
		}
	}

	if !out.hasDepth && !out.hasCP && !out.hasMate && len(out.pv) == 0 {
		return infoLine{}, false
	}
	return out, true
}

// uintField parses a non-negative integer argument. depth and multipv are
// unsigned on the wire; a negative or malformed value leaves the field unset.
func uintField(fields []string, i int) (int, bool) {
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.Atoi(fields[i])
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
