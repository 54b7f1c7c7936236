// Package match orchestrates the seeker-side job matching run: filter,
// heuristic scoring, optional model refinement, ranking, persistence.
package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/match-engine/internal/filtering"
	"github.com/jonathan/match-engine/internal/ranker"
	"github.com/jonathan/match-engine/internal/refinement"
	"github.com/jonathan/match-engine/internal/scores"
	"github.com/jonathan/match-engine/internal/scoring"
	"github.com/jonathan/match-engine/internal/types"
)

// Run-level error codes.
const (
	ErrCodeInvalidPreferences = "INVALID_PREFERENCES"
	ErrCodePipelineError      = "AGENT_PIPELINE_ERROR"
)

// maxRationaleLength truncates model reasoning used as the result rationale.
const maxRationaleLength = 240

// Store is the persistence contract the matching orchestrator consumes.
type Store interface {
	GetMatchingRun(ctx context.Context, runID uuid.UUID) (*types.MatchingRun, error)
	UpdateMatchingRun(ctx context.Context, run *types.MatchingRun) error
	ListJobs(ctx context.Context) ([]types.Job, error)
	ReplaceMatchResults(ctx context.Context, runID uuid.UUID, results []types.MatchResult) error
}

// Matcher drives one matching run through the lifecycle state machine.
type Matcher struct {
	store   Store
	scorer  *scoring.Scorer
	refiner *refinement.Refiner
	logger  *zap.Logger
	now     func() time.Time
}

// NewMatcher wires a matcher. The refiner may be nil when model refinement
// is unavailable; a nil logger falls back to a no-op logger.
func NewMatcher(store Store, scorer *scoring.Scorer, refiner *refinement.Refiner, logger *zap.Logger) *Matcher {
	if scorer == nil {
		scorer = scoring.NewScorer(scores.FitWeights{}, scores.PriorityWeights{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		store:   store,
		scorer:  scorer,
		refiner: refiner,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the matching pipeline for one run id. Terminal runs are
// returned unchanged. Invalid preferences and persistence errors fail the
// run; refinement failures only degrade scores.
func (m *Matcher) Run(ctx context.Context, runID uuid.UUID) (*types.MatchingRun, error) {
	run, err := m.store.GetMatchingRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matching run: %w", err)
	}
	if run.IsTerminal() {
		return run, nil
	}

	if err := run.PreferencesSnapshot.Validate(); err != nil {
		return m.failRun(ctx, run, ErrCodeInvalidPreferences, fmt.Sprintf("invalid preferences: %v", err))
	}

	started := m.now()
	run.Status = types.StatusFiltering
	run.StartedAt = &started
	if err := m.store.UpdateMatchingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update matching run: %w", err)
	}

	prefs := run.PreferencesSnapshot.Normalized()

	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		return m.failRun(ctx, run, ErrCodePipelineError, fmt.Sprintf("failed to list jobs: %v", err))
	}

	filterStart := m.now()
	filtered := filtering.FilterJobs(jobs, prefs)
	filteringMs := m.now().Sub(filterStart).Milliseconds()

	timing := map[string]any{
		"filtering_ms":          filteringMs,
		"deterministic_metrics": filtered.Metrics,
	}
	run.FilteredJobsCount = filtered.TotalConsidered

	// An empty filtered set short-circuits straight to COMPLETED with zero
	// results; no stage or model logic runs.
	if filtered.TotalConsidered == 0 {
		timing["agent_ms_total"] = int64(0)
		timing["total_ms"] = m.now().Sub(started).Milliseconds()
		return m.completeRun(ctx, run, timing)
	}

	run.Status = types.StatusAgentRunning
	run.TimingMetrics = timing
	if err := m.store.UpdateMatchingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update matching run: %w", err)
	}

	agentStart := m.now()
	results, refineMetrics := m.scoreAndRank(ctx, run, prefs, filtered.Jobs)
	timing["agent_ms_total"] = m.now().Sub(agentStart).Milliseconds()
	if refineMetrics.Attempted > 0 || refineMetrics.BudgetExceeded > 0 {
		timing["model_refinement"] = refineMetrics
	}

	// An incomplete result set must never be presented as COMPLETED, so a
	// write failure fails the run.
	if err := m.store.ReplaceMatchResults(ctx, run.ID, results); err != nil {
		return m.failRun(ctx, run, ErrCodePipelineError, fmt.Sprintf("failed to persist match results: %v", err))
	}

	timing["total_ms"] = m.now().Sub(started).Milliseconds()
	return m.completeRun(ctx, run, timing)
}

// scoreAndRank runs the heuristic scorer over the filtered jobs, refines
// the leaders, and produces the final ranked rows.
func (m *Matcher) scoreAndRank(ctx context.Context, run *types.MatchingRun, prefs types.JobPreferences, jobs []types.Job) ([]types.MatchResult, refinement.Metrics) {
	profile := run.ProfileSnapshot
	userSkills := scoring.ExtractSkills(profile.ResumeMetadata)

	scored := make([]ranker.ScoredJob, 0, len(jobs))
	heuristics := make([]scoring.JobScore, 0, len(jobs))
	for _, job := range jobs {
		score := m.scorer.ScoreJob(job, prefs, userSkills)
		scored = append(scored, ranker.ScoredJob{
			Job:       job,
			Selection: score.Selection,
			Fit:       score.Fit,
			Quality:   score.Quality,
			Why:       score.Why,
			Trace: map[string]any{
				"context": map[string]any{
					"career_stage":   profile.CareerStageOrDefault(),
					"risk_tolerance": profile.RiskToleranceOrDefault(),
				},
				"fit_reasons":    score.Reasons,
				"matched_skills": score.MatchedSkills,
			},
		})
		heuristics = append(heuristics, score)
	}

	// Refinement consumes the heuristic leaders, so order before refining.
	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].Selection > scored[order[b]].Selection
	})

	var metrics refinement.Metrics
	if m.refiner != nil {
		items := make([]refinement.Item, len(order))
		for pos, idx := range order {
			items[pos] = refinement.Item{Job: scored[idx].Job, Heuristic: heuristics[idx]}
		}

		var outcomes []refinement.Outcome
		outcomes, metrics = m.refiner.Refine(ctx, profile, prefs, items)
		for pos, outcome := range outcomes {
			idx := order[pos]
			scored[idx].Selection = outcome.BlendedSelection
			trace := scored[idx].Trace
			trace["model_refinement"] = map[string]any{
				"refined": outcome.Refined,
				"reason":  outcome.Reason,
			}
			if outcome.Refined {
				trace["model_scores"] = outcome.Model
				scored[idx].Why = truncate(outcome.Model.Reasoning, maxRationaleLength)
			}
		}
	}

	return ranker.RankJobs(scored, run.ID, 0), metrics
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// completeRun transitions the run to COMPLETED with its timing metrics.
func (m *Matcher) completeRun(ctx context.Context, run *types.MatchingRun, timing map[string]any) (*types.MatchingRun, error) {
	completed := m.now()
	run.Status = types.StatusCompleted
	run.TimingMetrics = timing
	run.CompletedAt = &completed
	if err := m.store.UpdateMatchingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to complete matching run: %w", err)
	}
	return run, nil
}

// failRun transitions the run to FAILED with the given code and message.
func (m *Matcher) failRun(ctx context.Context, run *types.MatchingRun, code, message string) (*types.MatchingRun, error) {
	completed := m.now()
	run.Status = types.StatusFailed
	run.ErrorCode = code
	run.ErrorMessage = message
	run.CompletedAt = &completed
	if err := m.store.UpdateMatchingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to mark matching run failed: %w", err)
	}
	return run, nil
}
