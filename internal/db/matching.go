package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/match-engine/internal/types"
)

// CreateMatchingRun creates a PENDING matching run with immutable
// preference and profile snapshots.
func (db *DB) CreateMatchingRun(ctx context.Context, userID uuid.UUID, prefs types.JobPreferences, profile types.CandidateProfile) (*types.MatchingRun, error) {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences snapshot: %w", err)
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile snapshot: %w", err)
	}

	run := types.MatchingRun{
		UserID:              userID,
		Status:              types.StatusPending,
		PreferencesSnapshot: prefs,
		ProfileSnapshot:     profile,
	}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO matching_runs (user_id, status, preferences_snapshot, candidate_profile_snapshot)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		userID, run.Status, prefsJSON, profileJSON,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create matching run: %w", err)
	}
	return &run, nil
}

// GetMatchingRun retrieves a matching run by id.
func (db *DB) GetMatchingRun(ctx context.Context, runID uuid.UUID) (*types.MatchingRun, error) {
	var run types.MatchingRun
	var prefsJSON, profileJSON, timingJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, status, preferences_snapshot, candidate_profile_snapshot,
		        filtered_jobs_count, COALESCE(error_code, ''), COALESCE(error_message, ''),
		        timing_metrics, started_at, completed_at, created_at, updated_at
		 FROM matching_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.UserID, &run.Status, &prefsJSON, &profileJSON,
		&run.FilteredJobsCount, &run.ErrorCode, &run.ErrorMessage,
		&timingJSON, &run.StartedAt, &run.CompletedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("matching run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get matching run: %w", err)
	}

	if err := json.Unmarshal(prefsJSON, &run.PreferencesSnapshot); err != nil {
		return nil, fmt.Errorf("failed to parse preferences snapshot: %w", err)
	}
	if err := json.Unmarshal(profileJSON, &run.ProfileSnapshot); err != nil {
		return nil, fmt.Errorf("failed to parse profile snapshot: %w", err)
	}
	if timingJSON != nil {
		_ = json.Unmarshal(timingJSON, &run.TimingMetrics)
	}
	return &run, nil
}

// UpdateMatchingRun persists the run's mutable lifecycle fields. The
// preference and profile snapshots are immutable and never rewritten.
func (db *DB) UpdateMatchingRun(ctx context.Context, run *types.MatchingRun) error {
	timingJSON, err := json.Marshal(run.TimingMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal timing metrics: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE matching_runs
		 SET status = $1, filtered_jobs_count = $2, error_code = NULLIF($3, ''),
		     error_message = NULLIF($4, ''), timing_metrics = $5,
		     started_at = $6, completed_at = $7, updated_at = NOW()
		 WHERE id = $8`,
		run.Status, run.FilteredJobsCount, run.ErrorCode, run.ErrorMessage,
		timingJSON, run.StartedAt, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update matching run: %w", err)
	}
	return nil
}

// ReplaceMatchResults atomically swaps the run's result rows:
// delete-then-insert under one transaction so readers never observe a
// partial result set.
func (db *DB) ReplaceMatchResults(ctx context.Context, runID uuid.UUID, results []types.MatchResult) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM matching_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete match results: %w", err)
	}

	for _, result := range results {
		traceJSON, err := json.Marshal(result.AgentTrace)
		if err != nil {
			return fmt.Errorf("failed to marshal agent trace: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO matching_results
			   (run_id, job_id, rank, selection_probability, fit_score, job_quality_score, why, agent_trace)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			runID, result.JobID, result.Rank, result.SelectionProbability,
			result.FitScore, result.JobQualityScore, result.Why, traceJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match result rank %d: %w", result.Rank, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit match results: %w", err)
	}
	return nil
}

// ListMatchResults retrieves a run's results ordered by rank.
func (db *DB) ListMatchResults(ctx context.Context, runID uuid.UUID) ([]types.MatchResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, job_id, rank, selection_probability, fit_score, job_quality_score, why, agent_trace
		 FROM matching_results WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list match results: %w", err)
	}
	defer rows.Close()

	var results []types.MatchResult
	for rows.Next() {
		var result types.MatchResult
		var traceJSON []byte
		if err := rows.Scan(&result.RunID, &result.JobID, &result.Rank,
			&result.SelectionProbability, &result.FitScore, &result.JobQualityScore,
			&result.Why, &traceJSON); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		if traceJSON != nil {
			_ = json.Unmarshal(traceJSON, &result.AgentTrace)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
