//go:build ignore

// Command mockuci simulates a UCI chess engine for session tests. It speaks
// just enough of the protocol to exercise the client: handshake, option
// setting, position setup, and a scripted search.
//
// CHESSPREP_MOCK_MODE selects a behavior:
//
//	""             full handshake, two-pass deepening search, bestmove
//	"width-echo"   one info line per configured MultiPV rank
//	"score-only"   info line with a score but no depth
//	"no-info"      bestmove with no info lines at all
//	"bestmove-none" one info line, then "bestmove (none)"
//	"mate"         forced-mate info line
//	"handshake-eof" exit before sending uciok
//	"chatter"      flood the handshake with junk, never send uciok
//	"hang"         search that never finishes; still honors quit
//	"ignore-quit"  search that never finishes and stops reading stdin
//
// If CHESSPREP_MOCK_PIDFILE names a file, the process writes its PID there on
// startup so tests can verify it was reaped.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	mode := os.Getenv("CHESSPREP_MOCK_MODE")
	if pidfile := os.Getenv("CHESSPREP_MOCK_PIDFILE"); pidfile != "" {
		_ = os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())), 0644)
	}

	multipv := 1
	position := ""
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "uci":
			fmt.Println("id name mockuci 1.0")
			switch mode {
			case "handshake-eof":
				return
			case "chatter":
				for i := 0; i < 20005; i++ {
					fmt.Printf("info string warming up %d\n", i)
				}
				continue
			}
			fmt.Println("id author mockuci")
			fmt.Println("option name MultiPV type spin default 1 min 1 max 500")
			fmt.Println("uciok")
		case line == "isready":
			fmt.Println("readyok")
		case strings.HasPrefix(line, "setoption name MultiPV value "):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "setoption name MultiPV value ")); err == nil {
				multipv = v
			}
		case strings.HasPrefix(line, "position "):
			position = line
		case line == "go" || strings.HasPrefix(line, "go "):
			search(mode, multipv, position)
			if mode == "ignore-quit" {
				time.Sleep(time.Hour)
			}
		case line == "quit":
			return
		}
	}
}

func search(mode string, multipv int, position string) {
	// An empty board marks a position the mock refuses to analyze, so batch
	// tests can mix failures into an otherwise healthy run.
	if strings.Contains(position, "8/8/8/8/8/8/8/8") {
		fmt.Println("bestmove (none)")
		return
	}

	switch mode {
	case "no-info":
		fmt.Println("bestmove e2e4")
	case "bestmove-none":
		fmt.Println("info depth 8 multipv 1 score cp 0 pv e2e4")
		fmt.Println("bestmove (none)")
	case "mate":
		fmt.Println("info depth 5 seldepth 5 multipv 1 score mate 1 nodes 77 nps 770 pv f7g7")
		fmt.Println("bestmove f7g7")
	case "score-only":
		fmt.Println("info multipv 1 score cp 5 pv e2e4")
		fmt.Println("bestmove e2e4")
	case "width-echo":
		for rank := 1; rank <= multipv; rank++ {
			fmt.Printf("info depth 6 multipv %d score cp %d pv e2e4\n", rank, 50-rank)
		}
		fmt.Println("bestmove e2e4")
	case "hang", "ignore-quit":
		fmt.Println("info depth 3 score cp 12 pv e2e4")
		// No bestmove: the search never finishes.
	default:
		fmt.Println("info string search started")
		fmt.Println("info depth 10 seldepth 12 multipv 1 score cp 30 nodes 5000 nps 100000 pv e2e4 e7e5")
		if multipv >= 2 {
			fmt.Println("info depth 12 seldepth 14 multipv 2 score cp 10 nodes 9000 nps 110000 pv d2d4 d7d5")
		}
		fmt.Println("info depth 12 seldepth 15 multipv 1 score cp 34 nodes 11111 nps 200000 pv e2e4 e7e5 g1f3")
		fmt.Println("bestmove e2e4 ponder e7e5")
	}
}
