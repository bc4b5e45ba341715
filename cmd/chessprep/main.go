package main

import (
	"fmt"
	"os"

	"chessprep/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	cfgPath    string
	dbPath     string
	enginePath string

	// Configuration loaded in PersistentPreRunE, flag overrides applied
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chessprep",
	Short: "chessprep - chess preparation backend (PGN import, engine analysis, workspaces)",
	Long: `chessprep maintains a personal chess preparation database.

It imports PGN archives into SQLite, replays stored games move by move,
drives a UCI engine for ranked MultiPV analysis, and keeps annotated
analysis workspaces for opening preparation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		// Command-line flags take precedence over the config file
		if dbPath != "" {
			cfg.Database.GamesPath = dbPath
		}
		if enginePath != "" {
			cfg.Engine.Path = enginePath
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the chessprep version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chessprep version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chessprep %s\n", version)
	},
}

const version = "0.3.0"

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "chessprep.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Games database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&enginePath, "engine", "", "UCI engine binary (overrides config)")

	// Add commands to root
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
