package main

import (
	"fmt"

	"chessprep/internal/store"

	"github.com/spf13/cobra"
)

var (
	gamesSearch string
	gamesResult string
	gamesECO    string
	gamesEvent  string
	gamesFrom   string
	gamesTo     string
	gamesLimit  int
	gamesOffset int
)

// gamesCmd searches and lists stored games
var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Search and list stored games",
	Long: `Lists games matching the given filters, newest first, along with the
total number of matches.

Examples:
  chessprep games --search carlsen --result 1-0
  chessprep games --eco B9 --from 2023.01.01 --to 2023.12.31
  chessprep games --event "Tata Steel" --limit 20`,
	RunE: listGames,
}

func listGames(cmd *cobra.Command, args []string) error {
	result, err := store.ParseResultFilter(gamesResult)
	if err != nil {
		return err
	}
	filter := store.Filter{
		SearchText:  gamesSearch,
		Result:      result,
		ECO:         gamesECO,
		EventOrSite: gamesEvent,
		DateFrom:    gamesFrom,
		DateTo:      gamesTo,
	}
	page := store.Pagination{Limit: gamesLimit, Offset: gamesOffset}

	st, err := store.Open(cfg.Database.GamesPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open games database: %w", err)
	}
	defer st.Close()

	games, err := st.SearchGames(filter, page)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	total, err := st.CountGames(filter)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Println("No games found")
		return nil
	}

	fmt.Printf("%6s  %-10s  %-24s %-24s %-7s %-4s %s\n",
		"ID", "Date", "White", "Black", "Result", "ECO", "Event")
	for _, g := range games {
		fmt.Printf("%6d  %-10s  %-24s %-24s %-7s %-4s %s\n",
			g.ID,
			orDash(g.Date),
			truncateStr(orDash(g.White), 24),
			truncateStr(orDash(g.Black), 24),
			orDash(g.Result),
			orDash(g.ECO),
			truncateStr(orDash(g.Event), 32))
	}
	fmt.Printf("\n%d of %d matching games\n", len(games), total)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	gamesCmd.Flags().StringVar(&gamesSearch, "search", "", "Free text over players, event, site and ECO")
	gamesCmd.Flags().StringVar(&gamesResult, "result", "", "Result filter: 1-0, 0-1 or 1/2-1/2")
	gamesCmd.Flags().StringVar(&gamesECO, "eco", "", "ECO code prefix (e.g. B9)")
	gamesCmd.Flags().StringVar(&gamesEvent, "event", "", "Substring over event and site")
	gamesCmd.Flags().StringVar(&gamesFrom, "from", "", "Earliest date, YYYY.MM.DD")
	gamesCmd.Flags().StringVar(&gamesTo, "to", "", "Latest date, YYYY.MM.DD")
	gamesCmd.Flags().IntVar(&gamesLimit, "limit", 0, "Page size (default 50, max 500)")
	gamesCmd.Flags().IntVar(&gamesOffset, "offset", 0, "Rows to skip")
}
