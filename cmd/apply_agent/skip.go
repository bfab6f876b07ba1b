package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/engine"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/store"
)

var skipCommand = &cobra.Command{
	Use:   "skip <job-identity>",
	Short: "Withdraw a queued application by job identity",
	Long: `Marks the record for a job identity (board/external-id) as skipped so no
cycle will ever submit it. Only records that have not reached the submission
step can be skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: skipCmd,
}

var (
	skipConfigPath  string
	skipDatabaseURL string
)

func init() {
	skipCommand.Flags().StringVar(&skipConfigPath, "config", "", "Path to config.json file")
	skipCommand.Flags().StringVar(&skipDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(skipCommand)
}

func skipCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var cfg config.Config
	if skipConfigPath != "" {
		loaded, err := config.LoadConfig(skipConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = skipDatabaseURL
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Record mutation goes through the engine; skipping needs no browser,
	// generation, or quota collaborators.
	eng := engine.New(db, nil, nil, nil, nil, nil, nil, nil, &cfg.Profile, nil)
	rec, err := eng.Skip(ctx, args[0])
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintRecord(rec)
	return nil
}
