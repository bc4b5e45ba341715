package main

import (
	"fmt"
	"strconv"

	"chessprep/internal/replay"
	"chessprep/internal/store"

	"github.com/spf13/cobra"
)

var replayFENs bool

// replayCmd prints the move timeline of a stored game
var replayCmd = &cobra.Command{
	Use:   "replay [game-id]",
	Short: "Replay a stored game move by move",
	Long: `Replays a game's movetext and prints each ply with its SAN and UCI
notation and the position after the move as FEN. Pass --fens=false for a
compact move-only listing.`,
	Args: cobra.ExactArgs(1),
	RunE: replayGame,
}

func replayGame(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid game id '%s'", args[0])
	}

	st, err := store.Open(cfg.Database.GamesPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open games database: %w", err)
	}
	defer st.Close()

	timeline, err := replay.Game(st, id)
	if err != nil {
		return fmt.Errorf("replay of game %d failed: %w", id, err)
	}

	if replayFENs {
		fmt.Printf("start  %s\n", timeline.FENs[0])
	}
	for i := range timeline.SANs {
		moveNo := i/2 + 1
		tag := fmt.Sprintf("%d.", moveNo)
		if i%2 == 1 {
			tag = fmt.Sprintf("%d...", moveNo)
		}
		fmt.Printf("%-6s %-8s %s\n", tag, timeline.SANs[i], timeline.UCIs[i])
		if replayFENs {
			fmt.Printf("       %s\n", timeline.FENs[i+1])
		}
	}
	fmt.Printf("\n%d plies\n", len(timeline.SANs))
	return nil
}

func init() {
	replayCmd.Flags().BoolVar(&replayFENs, "fens", true, "Print the FEN after every move")
}
