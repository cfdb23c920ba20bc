package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/experience-matcher/internal/observability"
	"github.com/jonathan/experience-matcher/internal/types"
)

var experiencesCmd = &cobra.Command{
	Use:   "experiences",
	Short: "Manage the stored work experiences",
}

var experiencesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a work experience to the vector store",
	RunE:  runExperiencesAdd,
}

var experiencesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored work experiences",
	RunE:  runExperiencesList,
}

var experiencesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored work experience",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperiencesDelete,
}

var (
	expCompany    string
	expRole       string
	expDuration   string
	expText       string
	expTextFile   string
	expSkills     []string
	expCategories []string
	expListLimit  int
)

func init() {
	experiencesAddCmd.Flags().StringVar(&expCompany, "company", "", "Company name (required)")
	experiencesAddCmd.Flags().StringVar(&expRole, "role", "", "Role held at the company")
	experiencesAddCmd.Flags().StringVar(&expDuration, "duration", "", "Duration, e.g. \"2021-2023\"")
	experiencesAddCmd.Flags().StringVar(&expText, "text", "", "Experience description")
	experiencesAddCmd.Flags().StringVar(&expTextFile, "text-file", "", "Path to a file containing the experience description")
	experiencesAddCmd.Flags().StringSliceVar(&expSkills, "skills", nil, "Skills demonstrated, comma-separated")
	experiencesAddCmd.Flags().StringSliceVar(&expCategories, "categories", nil, "Categories, comma-separated")
	_ = experiencesAddCmd.MarkFlagRequired("company")

	experiencesListCmd.Flags().IntVar(&expListLimit, "limit", 50, "Maximum number of experiences to list")

	experiencesCmd.AddCommand(experiencesAddCmd)
	experiencesCmd.AddCommand(experiencesListCmd)
	experiencesCmd.AddCommand(experiencesDeleteCmd)
	rootCmd.AddCommand(experiencesCmd)
}

func runExperiencesAdd(cmd *cobra.Command, args []string) error {
	text := expText
	if text == "" && expTextFile != "" {
		data, err := os.ReadFile(expTextFile)
		if err != nil {
			return fmt.Errorf("failed to read experience text file: %w", err)
		}
		text = string(data)
	}
	if text == "" {
		return fmt.Errorf("either --text or --text-file must be provided")
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

	id, err := store.AddExperience(ctx, &types.Experience{
		Company:    expCompany,
		Role:       expRole,
		Duration:   expDuration,
		Text:       text,
		Skills:     expSkills,
		Categories: expCategories,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Added experience %s\n", id)
	return nil
}

func runExperiencesList(cmd *cobra.Command, args []string) error {
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

	experiences, err := store.ListExperiences(ctx, expListLimit)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintExperiences(experiences)
	return nil
}

func runExperiencesDelete(cmd *cobra.Command, args []string) error {
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

	if err := store.DeleteExperience(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Deleted experience %s\n", args[0])
	return nil
}
