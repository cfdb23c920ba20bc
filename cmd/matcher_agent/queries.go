package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/experience-matcher/internal/observability"
	"github.com/jonathan/experience-matcher/internal/queryopt"
	"github.com/jonathan/experience-matcher/internal/types"
)

var queriesCmd = &cobra.Command{
	Use:   "queries [url]",
	Short: "Show the search queries generated for a job posting",
	Long:  "Extract a job posting from a URL or text file and print the optimized search queries without running a search.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQueries,
}

var queriesTextFile string

func init() {
	queriesCmd.Flags().StringVarP(&queriesTextFile, "text-file", "t", "", "Path to a text file containing the job posting")

	rootCmd.AddCommand(queriesCmd)
}

func runQueries(cmd *cobra.Command, args []string) error {
	jobURL := ""
	if len(args) > 0 {
		jobURL = args[0]
	}
	if jobURL == "" && queriesTextFile == "" {
		return fmt.Errorf("either a URL argument or --text-file must be provided")
	}

	cfg, log, err := loadApp()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx := cmd.Context()

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	extractor := newExtractor(cfg, client, log)

	var job *types.JobDescription
	if jobURL != "" {
		job, err = extractor.FromURL(ctx, jobURL)
	} else {
		var text []byte
		text, err = os.ReadFile(queriesTextFile)
		if err != nil {
			return fmt.Errorf("failed to read job text file: %w", err)
		}
		job, err = extractor.FromText(ctx, string(text))
	}
	if err != nil {
		return err
	}

	queries := queryopt.New(log).Generate(job, cfg.MaxQueries)

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintJobDescription(job)
	printer.PrintQueries(queries)
	return nil
}
