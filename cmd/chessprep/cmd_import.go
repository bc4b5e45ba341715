package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chessprep/internal/pgn"
	"chessprep/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchDir string

// importCmd imports PGN files into the games database
var importCmd = &cobra.Command{
	Use:   "import [file.pgn|file.pgn.zst]...",
	Short: "Import PGN files into the games database",
	Long: `Imports one or more PGN files (optionally zstd-compressed) into the games
database. Exact duplicates are skipped and stale truncated copies of
re-exported games are replaced.

With --watch, runs an inbox loop instead: new or modified PGN files dropped
into the directory are imported automatically until interrupted.

Examples:
  chessprep import twic1500.pgn mygames.pgn.zst
  chessprep import --watch ~/chess/inbox`,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	if watchDir == "" && len(args) == 0 {
		return fmt.Errorf("nothing to do: pass PGN files or --watch DIR")
	}

	st, err := store.Open(cfg.Database.GamesPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open games database: %w", err)
	}
	defer st.Close()

	for _, path := range args {
		if err := importOne(st, path); err != nil {
			return err
		}
	}

	if watchDir == "" {
		return nil
	}
	return watchInbox(st)
}

func importOne(st *store.Store, path string) error {
	summary, err := pgn.ImportFile(st, path, logger, func(p pgn.Summary) {
		fmt.Fprintf(os.Stderr, "\r%s: %d games (%d new, %d skipped, %d errors)",
			path, p.Total, p.Inserted, p.Skipped, p.Errors)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("import of '%s' failed: %w", path, err)
	}

	fmt.Printf("%s: imported %d of %d games (%d skipped, %d errors)\n",
		path, summary.Inserted, summary.Total, summary.Skipped, summary.Errors)
	return nil
}

func watchInbox(st *store.Store) error {
	watcher, err := pgn.NewWatcher(st, watchDir, cfg.GetDebounce(), logger, func(path string, summary pgn.Summary, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "import of '%s' failed: %v\n", path, err)
			return
		}
		fmt.Printf("%s: imported %d of %d games (%d skipped, %d errors)\n",
			path, summary.Inserted, summary.Total, summary.Skipped, summary.Errors)
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	defer watcher.Stop()

	if err := watcher.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	logger.Info("Watching inbox", zap.String("dir", watchDir))
	fmt.Printf("Watching %s for PGN files (Ctrl-C to stop)\n", watchDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal")
	return nil
}

func init() {
	importCmd.Flags().StringVar(&watchDir, "watch", "", "Watch a directory and import dropped PGN files")
}
