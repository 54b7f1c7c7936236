package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/match-engine/internal/db"
	"github.com/jonathan/match-engine/internal/match"
	"github.com/jonathan/match-engine/internal/observability"
	"github.com/jonathan/match-engine/internal/tasks"
	"github.com/jonathan/match-engine/internal/types"
)

var runMatchingCmd = &cobra.Command{
	Use:   "run-matching",
	Short: "Execute a seeker-side job matching run",
	Long:  "Execute the job matching pipeline for an existing run, or create a new run from preference and profile files and execute it.",
	RunE:  runRunMatching,
}

var (
	matchRunID       string
	matchUserID      string
	matchPrefsFile   string
	matchProfileFile string
)

func init() {
	runMatchingCmd.Flags().StringVar(&matchRunID, "run", "", "Existing matching run UUID to execute")
	runMatchingCmd.Flags().StringVar(&matchUserID, "user", "", "User UUID (when creating a new run)")
	runMatchingCmd.Flags().StringVar(&matchPrefsFile, "preferences", "", "Path to job preferences JSON (when creating a new run)")
	runMatchingCmd.Flags().StringVar(&matchProfileFile, "profile", "", "Path to candidate profile JSON (optional)")

	rootCmd.AddCommand(runMatchingCmd)
}

func runRunMatching(cmd *cobra.Command, args []string) error {
	if matchRunID == "" && matchPrefsFile == "" {
		return fmt.Errorf("either --run or --preferences must be provided")
	}
	if matchRunID != "" && matchPrefsFile != "" {
		return fmt.Errorf("--run and --preferences are mutually exclusive; provide only one")
	}

	ctx := cmd.Context()
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
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
	if matchRunID != "" {
		runID, err = uuid.Parse(matchRunID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
	} else {
		runID, err = createMatchingRun(cmd, store)
		if err != nil {
			return err
		}
	}

	refiner, closeRefiner, err := newRefiner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRefiner()

	matcher := match.NewMatcher(store, nil, refiner, logger)
	runner := tasks.NewRunner(tasks.Config{}, logger)

	err = runner.Execute(ctx, tasks.Task{
		Name:  "run-matching",
		RunID: runID,
		Run: func(ctx context.Context, id uuid.UUID) error {
			_, err := matcher.Run(ctx, id)
			return err
		},
		MarkFailed: markMatchingFailed(store),
	})
	if err != nil {
		return err
	}

	run, err := store.GetMatchingRun(ctx, runID)
	if err != nil {
		return err
	}
	results, err := store.ListMatchResults(ctx, runID)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintMatchingRun(run)
	if cfg.Verbose {
		printer.PrintMatchResults(results)
	} else {
		fmt.Fprintf(os.Stdout, "Run %s: %s, %d matches\n", run.ID, run.Status, len(results))
	}
	return nil
}

// createMatchingRun builds a new run from the preference and profile files.
func createMatchingRun(cmd *cobra.Command, store *db.DB) (uuid.UUID, error) {
	if matchUserID == "" {
		return uuid.Nil, fmt.Errorf("--user is required when creating a new run")
	}
	userID, err := uuid.Parse(matchUserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id: %w", err)
	}

	var prefs types.JobPreferences
	if err := readJSONFile(matchPrefsFile, &prefs); err != nil {
		return uuid.Nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if err := prefs.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("invalid preferences: %w", err)
	}

	var profile types.CandidateProfile
	if matchProfileFile != "" {
		if err := readJSONFile(matchProfileFile, &profile); err != nil {
			return uuid.Nil, fmt.Errorf("failed to load profile: %w", err)
		}
	}

	run, err := store.CreateMatchingRun(cmd.Context(), userID, prefs.Normalized(), profile)
	if err != nil {
		return uuid.Nil, err
	}
	fmt.Fprintf(os.Stdout, "Created matching run %s\n", run.ID)
	return run.ID, nil
}

func readJSONFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
