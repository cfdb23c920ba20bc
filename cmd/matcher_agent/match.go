package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/experience-matcher/internal/db"
	"github.com/jonathan/experience-matcher/internal/observability"
	"github.com/jonathan/experience-matcher/internal/types"
)

var matchCmd = &cobra.Command{
	Use:   "match [url]",
	Short: "Match stored experiences against a job posting",
	Long:  "Extract a job posting from a URL or text file, search the experience store with optimized queries, refine the best matches, and print the result.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMatch,
}

var (
	matchTextFile string
	matchTitle    string
	matchCompany  string
	matchSave     bool
	matchAsJSON   bool
)

func init() {
	matchCmd.Flags().StringVarP(&matchTextFile, "text-file", "t", "", "Path to a text file containing the job posting")
	matchCmd.Flags().StringVar(&matchTitle, "title", "", "Job title override when matching from text")
	matchCmd.Flags().StringVar(&matchCompany, "company", "", "Company override when matching from text")
	matchCmd.Flags().BoolVar(&matchSave, "save", false, "Persist the run and result to Postgres (requires DATABASE_URL)")
	matchCmd.Flags().BoolVar(&matchAsJSON, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	jobURL := ""
	if len(args) > 0 {
		jobURL = args[0]
	}
	if jobURL == "" && matchTextFile == "" {
		return fmt.Errorf("either a URL argument or --text-file must be provided")
	}
	if jobURL != "" && matchTextFile != "" {
		return fmt.Errorf("URL argument and --text-file are mutually exclusive; provide only one")
	}

	cfg, log, err := loadApp()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx := cmd.Context()

	store, provider, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	defer func() { _ = provider.Close() }()

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	} else {
		log.Warn("no GEMINI_API_KEY configured, refinement and AI extraction disabled")
	}

	m := newMatcher(cfg, store, client, log)

	var result *types.JobMatchResult
	if jobURL != "" {
		result, err = m.MatchFromURL(ctx, jobURL)
	} else {
		var text []byte
		text, err = os.ReadFile(matchTextFile)
		if err != nil {
			return fmt.Errorf("failed to read job text file: %w", err)
		}
		result, err = m.MatchFromDescription(ctx, matchTitle, matchCompany, string(text))
	}
	if err != nil {
		return err
	}

	if matchSave {
		if err := saveRun(ctx, cfg.DatabaseURL, jobURL, result); err != nil {
			return err
		}
	}

	if matchAsJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintJobDescription(result.JobDescription)
	printer.PrintMatchResult(result)
	printer.PrintStats(m.Stats())
	return nil
}

// saveRun records the run and its result artifacts in Postgres.
func saveRun(ctx context.Context, databaseURL, jobURL string, result *types.JobMatchResult) error {
	if databaseURL == "" {
		return fmt.Errorf("--save requires DATABASE_URL to be configured")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	runID, err := database.CreateRun(ctx, jobURL, result.JobDescription.Title, result.JobDescription.Company)
	if err != nil {
		return err
	}
	if err := database.SaveArtifact(ctx, runID, db.KindJobDescription, result.JobDescription); err != nil {
		return err
	}
	if err := database.SaveResult(ctx, runID, result); err != nil {
		return err
	}
	if err := database.CompleteRun(ctx, runID, db.RunStatusCompleted); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Saved run %s\n", runID)
	return nil
}
