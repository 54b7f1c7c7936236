// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags or environment variables.
type Config struct {
	// Connections
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key

	// Pipeline tuning
	StageRetries int `json:"stage_retries,omitempty"` // Extra attempts per stage
	BatchSize    int `json:"batch_size,omitempty"`    // Candidates per batch
	Parallelism  int `json:"parallelism,omitempty"`   // Concurrent candidates per batch

	// Model refinement
	RefinementEnabled  bool `json:"refinement_enabled,omitempty"`   // Re-score leaders with the model
	RefinementTopN     int  `json:"refinement_top_n,omitempty"`     // How many leaders to re-score
	RefinementBudgetMs int  `json:"refinement_budget_ms,omitempty"` // Wall-clock budget for all model calls

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed run summaries
}

// Environment variable fallbacks applied by ApplyEnv.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvAPIKey      = "GEMINI_API_KEY"
)

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.StageRetries < 0 {
		return fmt.Errorf("config error: 'stage_retries' must be non-negative")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("config error: 'batch_size' must be non-negative")
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("config error: 'parallelism' must be non-negative")
	}
	if c.RefinementTopN < 0 {
		return fmt.Errorf("config error: 'refinement_top_n' must be non-negative")
	}
	if c.RefinementBudgetMs < 0 {
		return fmt.Errorf("config error: 'refinement_budget_ms' must be non-negative")
	}
	return nil
}

// ApplyEnv fills connection fields from environment variables when the
// config file and flags left them empty.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}

	// Int fields: use default if zero
	if result.StageRetries == 0 {
		result.StageRetries = defaults.StageRetries
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.Parallelism == 0 {
		result.Parallelism = defaults.Parallelism
	}
	if result.RefinementTopN == 0 {
		result.RefinementTopN = defaults.RefinementTopN
	}
	if result.RefinementBudgetMs == 0 {
		result.RefinementBudgetMs = defaults.RefinementBudgetMs
	}

	// Bool fields: unset and false are indistinguishable, so merging can
	// only ever turn them on
	result.RefinementEnabled = result.RefinementEnabled || defaults.RefinementEnabled
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}
