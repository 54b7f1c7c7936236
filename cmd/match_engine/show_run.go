package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/match-engine/internal/observability"
)

var showRunCmd = &cobra.Command{
	Use:   "show-run",
	Short: "Print a run's status, timing metrics and ranked results",
	Long:  "Look up a matching or ranking run by UUID and print its lifecycle state, timing metrics and result rows.",
	RunE:  runShowRun,
}

var (
	showRunID   string
	showRanking bool
)

func init() {
	showRunCmd.Flags().StringVar(&showRunID, "run", "", "Run UUID (required)")
	showRunCmd.Flags().BoolVar(&showRanking, "ranking", false, "Treat the id as a candidate-ranking run instead of a matching run")
	showRunCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(showRunCmd)
}

func runShowRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	runID, err := uuid.Parse(showRunID)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	store, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	printer := observability.NewPrinter(os.Stdout)

	if showRanking {
		run, err := store.GetRankingRun(ctx, runID)
		if err != nil {
			return err
		}
		results, err := store.ListRankingResults(ctx, runID)
		if err != nil {
			return err
		}
		printer.PrintRankingRun(run)
		printer.PrintRankingResults(results)
		return nil
	}

	run, err := store.GetMatchingRun(ctx, runID)
	if err != nil {
		return err
	}
	results, err := store.ListMatchResults(ctx, runID)
	if err != nil {
		return err
	}
	printer.PrintMatchingRun(run)
	printer.PrintMatchResults(results)
	return nil
}
