package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"database_url": "postgres://localhost/match",
		"stage_retries": 3,
		"refinement_enabled": true,
		"refinement_budget_ms": 45000
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/match", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.StageRetries)
	assert.True(t, cfg.RefinementEnabled)
	assert.Equal(t, 45000, cfg.RefinementBudgetMs)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "config path is empty")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeConfig(t, `{broken`))
	assert.ErrorContains(t, err, "failed to parse config JSON")
}

func TestValidate(t *testing.T) {
	cfg := Config{StageRetries: 2, BatchSize: 10, Parallelism: 4}
	assert.NoError(t, cfg.Validate())

	cfg = Config{StageRetries: -1}
	assert.ErrorContains(t, cfg.Validate(), "stage_retries")

	cfg = Config{RefinementBudgetMs: -5}
	assert.ErrorContains(t, cfg.Validate(), "refinement_budget_ms")
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://explicit", Verbose: true}
	merged := cfg.MergeWithDefaults(Config{
		DatabaseURL:  "postgres://default",
		APIKey:       "default-key",
		BatchSize:    10,
		Parallelism:  4,
		StageRetries: 2,
	})

	assert.Equal(t, "postgres://explicit", merged.DatabaseURL)
	assert.Equal(t, "default-key", merged.APIKey)
	assert.Equal(t, 10, merged.BatchSize)
	assert.Equal(t, 4, merged.Parallelism)
	assert.Equal(t, 2, merged.StageRetries)
	assert.True(t, merged.Verbose)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://from-env")
	t.Setenv(EnvAPIKey, "env-key")

	cfg := Config{APIKey: "explicit-key"}
	cfg.ApplyEnv()
	assert.Equal(t, "postgres://from-env", cfg.DatabaseURL)
	assert.Equal(t, "explicit-key", cfg.APIKey)
}

func TestMergeWithDefaults_BoolsSurviveMerge(t *testing.T) {
	overlay := Config{RefinementTopN: 5}
	merged := overlay.MergeWithDefaults(Config{RefinementEnabled: true, Verbose: true})

	assert.True(t, merged.RefinementEnabled, "refinement_enabled from the config file must survive the merge")
	assert.True(t, merged.Verbose)
	assert.Equal(t, 5, merged.RefinementTopN)

	// an explicit flag can turn a bool on even when the file leaves it off
	overlay = Config{RefinementEnabled: true}
	merged = overlay.MergeWithDefaults(Config{})
	assert.True(t, merged.RefinementEnabled)
}
