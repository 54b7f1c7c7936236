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

// CreateRankingRun creates a PENDING candidate-ranking run for a job.
func (db *DB) CreateRankingRun(ctx context.Context, jobID uuid.UUID, batchSize int) (*types.RankingRun, error) {
	run := types.RankingRun{
		JobID:     jobID,
		Status:    types.StatusPending,
		BatchSize: batchSize,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO ranking_runs (job_id, status, batch_size)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		jobID, run.Status, batchSize,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ranking run: %w", err)
	}
	return &run, nil
}

// GetRankingRun retrieves a ranking run by id.
func (db *DB) GetRankingRun(ctx context.Context, runID uuid.UUID) (*types.RankingRun, error) {
	var run types.RankingRun
	var timingJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, job_id, status, batch_size, COALESCE(model_name, ''),
		        total_candidates, processed_candidates, shortlisted_count,
		        COALESCE(error_code, ''), COALESCE(error_message, ''),
		        timing_metrics, started_at, completed_at, created_at, updated_at
		 FROM ranking_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.JobID, &run.Status, &run.BatchSize, &run.ModelName,
		&run.TotalCandidates, &run.ProcessedCandidates, &run.ShortlistedCount,
		&run.ErrorCode, &run.ErrorMessage,
		&timingJSON, &run.StartedAt, &run.CompletedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ranking run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get ranking run: %w", err)
	}

	if timingJSON != nil {
		_ = json.Unmarshal(timingJSON, &run.TimingMetrics)
	}
	return &run, nil
}

// UpdateRankingRun persists the run's mutable lifecycle fields.
func (db *DB) UpdateRankingRun(ctx context.Context, run *types.RankingRun) error {
	timingJSON, err := json.Marshal(run.TimingMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal timing metrics: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE ranking_runs
		 SET status = $1, batch_size = $2, model_name = NULLIF($3, ''),
		     total_candidates = $4, processed_candidates = $5, shortlisted_count = $6,
		     error_code = NULLIF($7, ''), error_message = NULLIF($8, ''),
		     timing_metrics = $9, started_at = $10, completed_at = $11, updated_at = NOW()
		 WHERE id = $12`,
		run.Status, run.BatchSize, run.ModelName,
		run.TotalCandidates, run.ProcessedCandidates, run.ShortlistedCount,
		run.ErrorCode, run.ErrorMessage,
		timingJSON, run.StartedAt, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ranking run: %w", err)
	}
	return nil
}

// GetRecruiterRules retrieves the recruiter's criteria set for a job.
// Returns nil with no error when none exists.
func (db *DB) GetRecruiterRules(ctx context.Context, jobID uuid.UUID) (*types.RecruiterRules, error) {
	var rules types.RecruiterRules
	var platformJSON, tiersJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT college_tiers, min_experience_years, max_experience_years,
		        coding_platform_rules, number_of_openings, COALESCE(job_description, '')
		 FROM recruiter_preferences WHERE job_id = $1`,
		jobID,
	).Scan(&tiersJSON, &rules.MinExperienceYears, &rules.MaxExperienceYears,
		&platformJSON, &rules.NumberOfOpenings, &rules.JobDescription)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recruiter rules: %w", err)
	}

	if err := json.Unmarshal(tiersJSON, &rules.CollegeTiers); err != nil {
		return nil, fmt.Errorf("failed to parse college tiers: %w", err)
	}
	if platformJSON != nil {
		if err := json.Unmarshal(platformJSON, &rules.PlatformRules); err != nil {
			return nil, fmt.Errorf("failed to parse platform rules: %w", err)
		}
	}
	return &rules, nil
}

// ListCandidates retrieves a job's candidates in creation order, the
// pipeline's stable processing order.
func (db *DB) ListCandidates(ctx context.Context, jobID uuid.UUID) ([]types.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, name, COALESCE(email, ''), COALESCE(resume_data, ''), created_at
		 FROM job_candidates WHERE job_id = $1 ORDER BY created_at, id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		var candidate types.Candidate
		if err := rows.Scan(&candidate.ID, &candidate.JobID, &candidate.Name,
			&candidate.Email, &candidate.ResumeData, &candidate.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}

// ReplaceRankingResults atomically swaps the run's result rows under one
// transaction.
func (db *DB) ReplaceRankingResults(ctx context.Context, runID uuid.UUID, results []types.RankingResult) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ranking_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete ranking results: %w", err)
	}

	for _, result := range results {
		subJSON, err := json.Marshal(result.SubScores)
		if err != nil {
			return fmt.Errorf("failed to marshal sub scores: %w", err)
		}
		reasonsJSON, err := json.Marshal(result.FilterReasons)
		if err != nil {
			return fmt.Errorf("failed to marshal filter reasons: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO ranking_results
			   (run_id, candidate_id, rank, is_shortlisted, passes_hard_filter,
			    final_score, sub_scores, filter_reasons, summary)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, result.CandidateID, result.Rank, result.IsShortlisted,
			result.PassesHardFilter, result.FinalScore, subJSON, reasonsJSON, result.Summary,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ranking result rank %d: %w", result.Rank, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ranking results: %w", err)
	}
	return nil
}

// ListRankingResults retrieves a run's results ordered by rank.
func (db *DB) ListRankingResults(ctx context.Context, runID uuid.UUID) ([]types.RankingResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, candidate_id, rank, is_shortlisted, passes_hard_filter,
		        final_score, sub_scores, filter_reasons, COALESCE(summary, '')
		 FROM ranking_results WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranking results: %w", err)
	}
	defer rows.Close()

	var results []types.RankingResult
	for rows.Next() {
		var result types.RankingResult
		var subJSON, reasonsJSON []byte
		if err := rows.Scan(&result.RunID, &result.CandidateID, &result.Rank,
			&result.IsShortlisted, &result.PassesHardFilter, &result.FinalScore,
			&subJSON, &reasonsJSON, &result.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan ranking result: %w", err)
		}
		if subJSON != nil {
			_ = json.Unmarshal(subJSON, &result.SubScores)
		}
		if reasonsJSON != nil {
			_ = json.Unmarshal(reasonsJSON, &result.FilterReasons)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// AppendTrace inserts one immutable stage trace event.
func (db *DB) AppendTrace(ctx context.Context, event types.TraceEvent) error {
	requestJSON, err := json.Marshal(event.RequestPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}
	responseJSON, err := json.Marshal(event.ResponsePayload)
	if err != nil {
		return fmt.Errorf("failed to marshal response payload: %w", err)
	}
	tokenJSON, err := json.Marshal(event.TokenUsage)
	if err != nil {
		return fmt.Errorf("failed to marshal token usage: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO agent_trace_events
		   (run_id, batch_id, candidate_id, agent_name, stage,
		    request_payload, response_payload, status, error_code, error_message,
		    attempt, max_attempts, fallback_applied, latency_ms, model_name,
		    token_usage, started_at, completed_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''),
		         $11, $12, $13, $14, NULLIF($15, ''), $16, $17, $18)`,
		event.RunID, event.BatchID, event.CandidateID, event.AgentName, event.Stage,
		requestJSON, responseJSON, event.Status, event.ErrorCode, event.ErrorMessage,
		event.Attempt, event.MaxAttempts, event.FallbackApplied, event.LatencyMs,
		event.ModelName, tokenJSON, event.StartedAt, event.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append trace event: %w", err)
	}
	return nil
}

// ListTraceEvents retrieves a run's trace events in insertion order.
func (db *DB) ListTraceEvents(ctx context.Context, runID uuid.UUID) ([]types.TraceEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, batch_id, COALESCE(candidate_id, ''), agent_name, stage,
		        request_payload, response_payload, status, COALESCE(error_code, ''),
		        COALESCE(error_message, ''), attempt, max_attempts, fallback_applied,
		        latency_ms, COALESCE(model_name, ''), token_usage, started_at, completed_at
		 FROM agent_trace_events WHERE run_id = $1 ORDER BY started_at, stage, attempt`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trace events: %w", err)
	}
	defer rows.Close()

	var events []types.TraceEvent
	for rows.Next() {
		var event types.TraceEvent
		var requestJSON, responseJSON, tokenJSON []byte
		if err := rows.Scan(&event.RunID, &event.BatchID, &event.CandidateID,
			&event.AgentName, &event.Stage, &requestJSON, &responseJSON,
			&event.Status, &event.ErrorCode, &event.ErrorMessage,
			&event.Attempt, &event.MaxAttempts, &event.FallbackApplied,
			&event.LatencyMs, &event.ModelName, &tokenJSON,
			&event.StartedAt, &event.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trace event: %w", err)
		}
		if requestJSON != nil {
			_ = json.Unmarshal(requestJSON, &event.RequestPayload)
		}
		if responseJSON != nil {
			_ = json.Unmarshal(responseJSON, &event.ResponsePayload)
		}
		if tokenJSON != nil {
			_ = json.Unmarshal(tokenJSON, &event.TokenUsage)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// GetTier reads a memoized institution classification. Returns nil with no
// error on a cache miss.
func (db *DB) GetTier(ctx context.Context, institutionKey string) (*types.TierCacheEntry, error) {
	var entry types.TierCacheEntry
	var evidenceJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT institution_normalized, tier, confidence, evidence,
		        COALESCE(source_model, ''), verified_at
		 FROM college_tier_lookup_cache WHERE institution_normalized = $1`,
		institutionKey,
	).Scan(&entry.InstitutionNormalized, &entry.Tier, &entry.Confidence,
		&evidenceJSON, &entry.SourceModel, &entry.VerifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tier cache entry: %w", err)
	}

	if evidenceJSON != nil {
		_ = json.Unmarshal(evidenceJSON, &entry.Evidence)
	}
	return &entry, nil
}

// UpsertTier writes a fresh classification. Concurrent writers racing on
// the same key converge on the latest idempotent re-classification.
func (db *DB) UpsertTier(ctx context.Context, entry types.TierCacheEntry) error {
	evidenceJSON, err := json.Marshal(entry.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO college_tier_lookup_cache
		   (institution_normalized, tier, confidence, evidence, source_model, verified_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW())
		 ON CONFLICT (institution_normalized) DO UPDATE
		 SET tier = EXCLUDED.tier, confidence = EXCLUDED.confidence,
		     evidence = EXCLUDED.evidence, source_model = EXCLUDED.source_model,
		     verified_at = NOW()`,
		entry.InstitutionNormalized, entry.Tier, entry.Confidence, evidenceJSON, entry.SourceModel,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tier cache entry: %w", err)
	}
	return nil
}
