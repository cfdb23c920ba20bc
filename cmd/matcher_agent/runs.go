package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/experience-matcher/internal/db"
	"github.com/jonathan/experience-matcher/internal/observability"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded match runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded match runs",
	RunE:  runRunsList,
}

var runsListLimit int

func init() {
	runsListCmd.Flags().IntVar(&runsListLimit, "limit", 50, "Maximum number of runs to list")

	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadApp()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx := cmd.Context()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("runs list requires DATABASE_URL to be configured")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	runs, err := database.ListRuns(ctx, runsListLimit)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintRuns(runs)
	return nil
}
