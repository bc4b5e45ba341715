package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chessprep/internal/replay"
	"chessprep/internal/store"
	"chessprep/internal/uci"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeFEN     string
	analyzeGame    int64
	analyzePly     int
	analyzeDepth   int
	analyzeMultiPV int
	analyzeBatch   string
	analyzeWorkers int
)

// analyzeCmd runs engine analysis on a position, a stored game, or a batch
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze positions with the configured UCI engine",
	Long: `Runs the configured UCI engine on a position and prints the ranked
principal variations with their evaluations.

The position comes from --fen, or from a stored game via --game (by default
the final position; --ply selects the position after that many half-moves).
With --batch, FENs are read line-wise from a file and analyzed concurrently
by a worker pool.

Examples:
  chessprep analyze --fen "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" --multipv 3
  chessprep analyze --game 42 --ply 16 --depth 24
  chessprep analyze --batch candidates.txt --workers 4`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	depth := analyzeDepth
	if depth == 0 {
		depth = cfg.Engine.Depth
	}
	multipv := analyzeMultiPV
	if multipv == 0 {
		multipv = cfg.Engine.MultiPV
	}

	if analyzeBatch != "" {
		return analyzeBatchFile(cmd, depth, multipv)
	}

	fen := analyzeFEN
	if fen == "" && analyzeGame == 0 {
		return fmt.Errorf("nothing to analyze: pass --fen, --game or --batch")
	}
	if fen == "" {
		var err error
		fen, err = gamePosition(analyzeGame, analyzePly)
		if err != nil {
			return err
		}
	}

	logger.Info("Analyzing position",
		zap.String("engine", cfg.Engine.Path),
		zap.Int("depth", depth),
		zap.Int("multipv", multipv))

	analysis, err := uci.AnalyzePositionMultiPV(cfg.Engine.Path, fen, depth, multipv)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printAnalysis(fen, analysis)
	return nil
}

// gamePosition resolves a stored game and ply count to a FEN. A negative ply
// selects the final position; a ply past the end of the game is an error.
func gamePosition(gameID int64, ply int) (string, error) {
	st, err := store.Open(cfg.Database.GamesPath, logger)
	if err != nil {
		return "", fmt.Errorf("failed to open games database: %w", err)
	}
	defer st.Close()

	fens, err := replay.GameFENs(st, gameID)
	if err != nil {
		return "", fmt.Errorf("replay of game %d failed: %w", gameID, err)
	}
	if ply < 0 {
		ply = len(fens) - 1
	} else if ply >= len(fens) {
		return "", fmt.Errorf("game %d has %d plies; --ply %d is out of range", gameID, len(fens)-1, ply)
	}
	return fens[ply], nil
}

func printAnalysis(fen string, analysis *uci.Analysis) {
	fmt.Printf("Position: %s\n", fen)
	fmt.Printf("Depth %d, best move %s\n\n", analysis.Depth, orDash(analysis.BestMove))
	for _, line := range analysis.Lines {
		fmt.Printf("%2d. %7s  d%-3d %s\n",
			line.Rank, formatScore(line.ScoreCP, line.ScoreMate), line.Depth, lineMoves(line))
	}
}

// lineMoves prefers the SAN translation and falls back to protocol tokens.
func lineMoves(line uci.Line) string {
	if len(line.SAN) > 0 {
		return strings.Join(line.SAN, " ")
	}
	return strings.Join(line.PV, " ")
}

func formatScore(cp, mate *int) string {
	switch {
	case mate != nil:
		return fmt.Sprintf("#%d", *mate)
	case cp != nil:
		return fmt.Sprintf("%+.2f", float64(*cp)/100)
	default:
		return "?"
	}
}

func analyzeBatchFile(cmd *cobra.Command, depth, multipv int) error {
	fens, err := readFENFile(analyzeBatch)
	if err != nil {
		return err
	}
	if len(fens) == 0 {
		return fmt.Errorf("no positions in '%s'", analyzeBatch)
	}

	workers := analyzeWorkers
	if workers == 0 {
		workers = cfg.Engine.BatchWorkers
	}

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	logger.Info("Analyzing batch",
		zap.String("file", analyzeBatch),
		zap.Int("positions", len(fens)),
		zap.Int("workers", workers))

	req := uci.BatchRequest{
		EnginePath: cfg.Engine.Path,
		Depth:      depth,
		MultiPV:    multipv,
		Workers:    workers,
	}
	results, err := uci.AnalyzeBatch(ctx, req, fens, logger)
	if err != nil {
		return fmt.Errorf("batch analysis failed: %w", err)
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("%-72s  error: %v\n", res.FEN, res.Err)
			continue
		}
		fmt.Printf("%-72s  %7s  %s\n",
			res.FEN,
			formatScore(res.Analysis.ScoreCP, res.Analysis.ScoreMate),
			orDash(res.Analysis.BestMove))
	}
	fmt.Printf("\n%d positions analyzed, %d failed\n", len(results)-failed, failed)
	return nil
}

func readFENFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var fens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return fens, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFEN, "fen", "", "Position to analyze as FEN")
	analyzeCmd.Flags().Int64Var(&analyzeGame, "game", 0, "Analyze a position from this stored game")
	analyzeCmd.Flags().IntVar(&analyzePly, "ply", -1, "Half-move count into --game (default: final position)")
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 0, "Search depth (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeMultiPV, "multipv", 0, "Number of ranked lines (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeBatch, "batch", "", "Analyze FENs read line-wise from a file")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Batch worker count (default from config)")
}
