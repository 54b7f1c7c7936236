package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/match-engine/internal/config"
	"github.com/jonathan/match-engine/internal/db"
	"github.com/jonathan/match-engine/internal/llm"
	"github.com/jonathan/match-engine/internal/refinement"
	"github.com/jonathan/match-engine/internal/types"
)

var (
	configPath      string
	flagDatabaseURL string
	flagAPIKey      string
	flagRefine      bool
	flagVerbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&flagDatabaseURL, "database-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&flagRefine, "refine", false, "Re-score the leading matches with the model")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed run summaries")
}

// loadCLIConfig merges flags over the config file over the environment.
func loadCLIConfig() (*config.Config, error) {
	var fileCfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		fileCfg = *loaded
	}

	overlay := config.Config{
		DatabaseURL:       flagDatabaseURL,
		APIKey:            flagAPIKey,
		RefinementEnabled: flagRefine,
		Verbose:           flagVerbose,
	}
	merged := overlay.MergeWithDefaults(fileCfg)
	merged.ApplyEnv()

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL required: set --database-url, the config file, or %s", config.EnvDatabaseURL)
	}
	return db.Connect(ctx, cfg.DatabaseURL)
}

func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key required: set --api-key, the config file, or %s", config.EnvAPIKey)
	}
	return llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
}

// newRefiner builds the model refinement pass when an API key is present.
// The second return value closes the underlying client.
func newRefiner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*refinement.Refiner, func(), error) {
	if !cfg.RefinementEnabled {
		return nil, func() {}, nil
	}
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("refinement enabled but no API key: set --api-key, the config file, or %s", config.EnvAPIKey)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}

	refineCfg := refinement.DefaultConfig()
	if cfg.RefinementTopN > 0 {
		refineCfg.TopN = cfg.RefinementTopN
	}
	if cfg.RefinementBudgetMs > 0 {
		refineCfg.Budget = time.Duration(cfg.RefinementBudgetMs) * time.Millisecond
	}
	return refinement.NewRefiner(client, refineCfg, logger), func() { _ = client.Close() }, nil
}

// markMatchingFailed records a terminal failure on a matching run that the
// pipeline could not bring to a terminal state itself.
func markMatchingFailed(store *db.DB) func(ctx context.Context, runID uuid.UUID, code, message string) error {
	return func(ctx context.Context, runID uuid.UUID, code, message string) error {
		run, err := store.GetMatchingRun(ctx, runID)
		if err != nil {
			return err
		}
		if run.IsTerminal() {
			return nil
		}
		now := time.Now()
		run.Status = types.StatusFailed
		run.ErrorCode = code
		run.ErrorMessage = message
		run.CompletedAt = &now
		return store.UpdateMatchingRun(ctx, run)
	}
}

// markRankingFailed is the ranking-run counterpart of markMatchingFailed.
func markRankingFailed(store *db.DB) func(ctx context.Context, runID uuid.UUID, code, message string) error {
	return func(ctx context.Context, runID uuid.UUID, code, message string) error {
		run, err := store.GetRankingRun(ctx, runID)
		if err != nil {
			return err
		}
		if run.IsTerminal() {
			return nil
		}
		now := time.Now()
		run.Status = types.StatusFailed
		run.ErrorCode = code
		run.ErrorMessage = message
		run.CompletedAt = &now
		return store.UpdateRankingRun(ctx, run)
	}
}
