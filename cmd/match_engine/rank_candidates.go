package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/match-engine/internal/agents"
	"github.com/jonathan/match-engine/internal/observability"
	"github.com/jonathan/match-engine/internal/tasks"
)

var rankCandidatesCmd = &cobra.Command{
	Use:   "rank-candidates",
	Short: "Execute a recruiter-side candidate ranking run",
	Long:  "Execute the candidate ranking pipeline for an existing run, or create a new run for a job posting and execute it.",
	RunE:  runRankCandidates,
}

var (
	rankRunID string
	rankJobID string
)

func init() {
	rankCandidatesCmd.Flags().StringVar(&rankRunID, "run", "", "Existing ranking run UUID to execute")
	rankCandidatesCmd.Flags().StringVar(&rankJobID, "job", "", "Job UUID to create a new ranking run for")

	rootCmd.AddCommand(rankCandidatesCmd)
}

func runRankCandidates(cmd *cobra.Command, args []string) error {
	if rankRunID == "" && rankJobID == "" {
		return fmt.Errorf("either --run or --job must be provided")
	}
	if rankRunID != "" && rankJobID != "" {
		return fmt.Errorf("--run and --job are mutually exclusive; provide only one")
	}

	ctx := cmd.Context()
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API key required: set --api-key, the config file, or GEMINI_API_KEY")
	}
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var runID uuid.UUID
	if rankRunID != "" {
		runID, err = uuid.Parse(rankRunID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
	} else {
		jobID, err := uuid.Parse(rankJobID)
		if err != nil {
			return fmt.Errorf("invalid job id: %w", err)
		}
		batchSize := cfg.BatchSize
		if batchSize <= 0 {
			batchSize = agents.DefaultBatchSize
		}
		run, err := store.CreateRankingRun(ctx, jobID, batchSize)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Created ranking run %s\n", run.ID)
		runID = run.ID
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	orchestrator := agents.NewOrchestrator(store, store, client, store, agents.Config{
		StageRetries: cfg.StageRetries,
		BatchSize:    cfg.BatchSize,
		Parallelism:  cfg.Parallelism,
	}, logger)
	runner := tasks.NewRunner(tasks.Config{}, logger)

	err = runner.Execute(ctx, tasks.Task{
		Name:  "rank-candidates",
		RunID: runID,
		Run: func(ctx context.Context, id uuid.UUID) error {
			_, err := orchestrator.Run(ctx, id)
			return err
		},
		MarkFailed: markRankingFailed(store),
	})
	if err != nil {
		return err
	}

	run, err := store.GetRankingRun(ctx, runID)
	if err != nil {
		return err
	}
	results, err := store.ListRankingResults(ctx, runID)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintRankingRun(run)
	if cfg.Verbose {
		printer.PrintRankingResults(results)
	} else {
		fmt.Fprintf(os.Stdout, "Run %s: %s, %d candidates ranked, %d shortlisted\n",
			run.ID, run.Status, len(results), run.ShortlistedCount)
	}
	return nil
}
