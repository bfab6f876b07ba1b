package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/store"
	"github.com/jonathan/apply-agent/internal/types"
)

var statusCommand = &cobra.Command{
	Use:   "status [job-identity]",
	Short: "Show the application queue, or one record by job identity",
	Long: `With no argument, prints a count of application records per state.
With a job identity argument (board/external-id), prints that record's audit trail entry.`,
	Args: cobra.MaximumNArgs(1),
	RunE: statusCmd,
}

var (
	statusConfigPath  string
	statusDatabaseURL string
)

func init() {
	statusCommand.Flags().StringVar(&statusConfigPath, "config", "", "Path to config.json file")
	statusCommand.Flags().StringVar(&statusDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(statusCommand)
}

func statusCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var cfg config.Config
	if statusConfigPath != "" {
		loaded, err := config.LoadConfig(statusConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = statusDatabaseURL
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

	printer := observability.NewPrinter(os.Stdout)

	if len(args) == 1 {
		rec, err := db.GetRecord(ctx, args[0], cfg.Profile.Version)
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Printf("No record for %s\n", args[0])
			return nil
		}
		printer.PrintRecord(rec)
		return nil
	}

	var all []*types.ApplicationRecord
	for _, state := range []types.State{
		types.StateDiscovered,
		types.StateFilteredAccepted,
		types.StateFilteredRejected,
		types.StateContentReady,
		types.StateSubmitting,
		types.StateSubmitted,
		types.StateFailed,
		types.StateSkipped,
	} {
		recs, err := db.ListRecordsByState(ctx, state)
		if err != nil {
			return err
		}
		all = append(all, recs...)
	}
	printer.PrintQueue(all)
	return nil
}
