package main

import (
	"fmt"

	"chessprep/internal/store"
	"chessprep/internal/workspace"

	"github.com/spf13/cobra"
)

// initCmd creates or refreshes both database schemas
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the games and workspace databases",
	Long: `Creates the games database and the workspace database at the configured
paths, including all tables and indexes. Safe to run against existing
databases; the schema statements are idempotent.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Database.GamesPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize games database: %w", err)
	}
	defer st.Close()

	ws, err := workspace.Open(cfg.Database.WorkspacePath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize workspace database: %w", err)
	}
	defer ws.Close()

	fmt.Printf("Games database:     %s\n", st.Path())
	fmt.Printf("Workspace database: %s\n", ws.Path())
	return nil
}
