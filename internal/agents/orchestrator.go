package agents

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/match-engine/internal/llm"
	"github.com/jonathan/match-engine/internal/ranker"
	"github.com/jonathan/match-engine/internal/scores"
	"github.com/jonathan/match-engine/internal/types"
)

// DefaultBatchSize is how many candidates form one processing batch.
const DefaultBatchSize = 10

// DefaultParallelism bounds concurrent candidates within a batch.
const DefaultParallelism = 4

// Run-level error codes.
const (
	ErrCodeMissingPreference = "MISSING_PREFERENCE"
	ErrCodeInvalidPreference = "INVALID_PREFERENCE"
	ErrCodePipelineError     = "AGENT_PIPELINE_ERROR"
)

// RunStore is the persistence contract the ranking orchestrator consumes.
type RunStore interface {
	GetRankingRun(ctx context.Context, runID uuid.UUID) (*types.RankingRun, error)
	UpdateRankingRun(ctx context.Context, run *types.RankingRun) error
	GetRecruiterRules(ctx context.Context, jobID uuid.UUID) (*types.RecruiterRules, error)
	ListCandidates(ctx context.Context, jobID uuid.UUID) ([]types.Candidate, error)
	ReplaceRankingResults(ctx context.Context, runID uuid.UUID, results []types.RankingResult) error
}

// Config tunes the orchestrator.
type Config struct {
	StageRetries int
	BatchSize    int
	Parallelism  int
	FitWeights   scores.CandidateFitWeights
}

// Orchestrator drives one candidate-ranking run end to end: stages A-F per
// candidate under the retry envelope, then ranking and result persistence.
type Orchestrator struct {
	store      RunStore
	traces     TraceSink
	classifier *TierClassifier
	config     Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator wires the orchestrator. Zero-value config fields fall
// back to the defaults; a nil logger falls back to a no-op logger.
func NewOrchestrator(store RunStore, traces TraceSink, client llm.Client, cache TierCache, config Config, logger *zap.Logger) *Orchestrator {
	if config.StageRetries <= 0 {
		config.StageRetries = DefaultStageRetries
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Parallelism <= 0 {
		config.Parallelism = DefaultParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:      store,
		traces:     traces,
		classifier: NewTierClassifier(client, cache),
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// stageMetrics accumulates per-stage timings and retry/fallback counters
// across concurrently processed candidates.
type stageMetrics struct {
	mu               sync.Mutex
	stageMs          map[string]int64
	retryCounts      map[string]int
	fallbackCounts   map[string]int
	totalRetriesUsed int
}

func newStageMetrics() *stageMetrics {
	return &stageMetrics{
		stageMs:        map[string]int64{},
		retryCounts:    map[string]int{StageNormalize: 0, StageClassify: 0, StageExperience: 0, StageCodingRules: 0, StageHardFilter: 0, StageFitScore: 0},
		fallbackCounts: map[string]int{StageNormalize: 0, StageClassify: 0, StageExperience: 0, StageCodingRules: 0, StageHardFilter: 0, StageFitScore: 0, "G": 0},
	}
}

func (m *stageMetrics) record(stage, msKey string, elapsed time.Duration, retries int, fallback bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageMs[msKey] += elapsed.Milliseconds()
	m.retryCounts[stage] += retries
	m.totalRetriesUsed += retries
	if fallback {
		m.fallbackCounts[stage]++
	}
}

func (m *stageMetrics) rankerFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackCounts["G"]++
}

func (m *stageMetrics) toMap() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]any{
		"retry_counts":       m.retryCounts,
		"fallback_counts":    m.fallbackCounts,
		"total_retries_used": m.totalRetriesUsed,
	}
	for key, ms := range m.stageMs {
		out[key] = ms
	}
	return out
}

// Run executes the ranking pipeline for one run id. Terminal runs are
// returned unchanged. Input errors and persistence errors fail the run;
// stage errors never do.
func (o *Orchestrator) Run(ctx context.Context, runID uuid.UUID) (*types.RankingRun, error) {
	run, err := o.store.GetRankingRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking run: %w", err)
	}
	if run.IsTerminal() {
		return run, nil
	}

	rules, err := o.store.GetRecruiterRules(ctx, run.JobID)
	if err != nil {
		return o.failRun(ctx, run, ErrCodePipelineError, fmt.Sprintf("failed to load recruiter rules: %v", err))
	}
	if rules == nil {
		return o.failRun(ctx, run, ErrCodeMissingPreference, "Recruiter preference not found for the job.")
	}
	if err := rules.Validate(); err != nil {
		return o.failRun(ctx, run, ErrCodeInvalidPreference, fmt.Sprintf("invalid recruiter rules: %v", err))
	}

	started := o.now()
	run.Status = types.StatusAgentRunning
	run.StartedAt = &started
	if o.classifier.client != nil {
		run.ModelName = o.classifier.client.GetModel(llm.TierStandard)
	}
	if run.BatchSize <= 0 {
		run.BatchSize = o.config.BatchSize
	}
	if err := o.store.UpdateRankingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update ranking run: %w", err)
	}

	candidates, err := o.store.ListCandidates(ctx, run.JobID)
	if err != nil {
		return o.failRun(ctx, run, ErrCodePipelineError, fmt.Sprintf("failed to list candidates: %v", err))
	}
	candidates = ranker.FallbackOrder(candidates)
	run.TotalCandidates = len(candidates)
	if err := o.store.UpdateRankingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update ranking run: %w", err)
	}

	metrics := newStageMetrics()
	scored := make([]ranker.ScoredCandidate, len(candidates))
	var processed atomic.Int64

	for batchStart := 0; batchStart < len(candidates); batchStart += run.BatchSize {
		batchEnd := batchStart + run.BatchSize
		if batchEnd > len(candidates) {
			batchEnd = len(candidates)
		}
		batchID := batchStart/run.BatchSize + 1

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(o.config.Parallelism)
		for i := batchStart; i < batchEnd; i++ {
			i := i
			group.Go(func() error {
				scored[i] = o.processCandidate(groupCtx, run, batchID, candidates[i], *rules, metrics)
				processed.Add(1)
				return nil
			})
		}
		// Workers never return errors; stage failures degrade to fallbacks.
		_ = group.Wait()

		run.ProcessedCandidates = int(processed.Load())
		if err := o.store.UpdateRankingRun(ctx, run); err != nil {
			o.logger.Warn("failed to update processed count", zap.Error(err))
		}
	}

	rankStart := o.now()
	results := o.rankWithFallback(scored, run.ID, rules.NumberOfOpenings, metrics)
	rankerMs := o.now().Sub(rankStart).Milliseconds()

	if err := o.store.ReplaceRankingResults(ctx, run.ID, results); err != nil {
		return o.failRun(ctx, run, ErrCodePipelineError, fmt.Sprintf("failed to persist ranking results: %v", err))
	}

	shortlisted := 0
	for _, result := range results {
		if result.IsShortlisted {
			shortlisted++
		}
	}

	timing := metrics.toMap()
	timing["ranker_ms"] = rankerMs
	timing["total_ms"] = o.now().Sub(started).Milliseconds()

	completed := o.now()
	run.Status = types.StatusCompleted
	run.ShortlistedCount = shortlisted
	run.ProcessedCandidates = int(processed.Load())
	run.TimingMetrics = timing
	run.CompletedAt = &completed
	if err := o.store.UpdateRankingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to complete ranking run: %w", err)
	}
	return run, nil
}

// processCandidate runs stages A-F for one candidate and returns the scored
// row. Every stage failure degrades to its fallback, so a row is always
// produced.
func (o *Orchestrator) processCandidate(ctx context.Context, run *types.RankingRun, batchID int, candidate types.Candidate, rules types.RecruiterRules, metrics *stageMetrics) ranker.ScoredCandidate {
	base := envelope{
		RunID:       run.ID,
		BatchID:     batchID,
		CandidateID: candidate.ID,
	}

	env := base
	env.Stage, env.AgentName = StageNormalize, AgentNormalizer
	env.RequestPayload = map[string]any{"candidate_id": candidate.ID}
	t0 := o.now()
	normRes := runStage(ctx, o.traces, o.logger, env, o.maxAttempts(), func(context.Context) (NormalizedCandidate, error) {
		return NormalizeCandidate(candidate), nil
	}, normalizeFallback(candidate))
	metrics.record(StageNormalize, "candidate_normalizer_ms", o.now().Sub(t0), normRes.Retries(), normRes.FallbackApplied)
	normalized := normRes.Output

	env = base
	env.Stage, env.AgentName = StageClassify, AgentTierClassifier
	env.RequestPayload = map[string]any{"education_text": normalized.EducationText}
	env.ModelName = run.ModelName
	t1 := o.now()
	tierRes := runStage(ctx, o.traces, o.logger, env, o.maxAttempts(), func(ctx context.Context) (TierClassification, error) {
		return o.classifier.Classify(ctx, normalized)
	}, tierFallback())
	metrics.record(StageClassify, "college_tier_ms", o.now().Sub(t1), tierRes.Retries(), tierRes.FallbackApplied)

	env = base
	env.Stage, env.AgentName = StageExperience, AgentExperience
	env.RequestPayload = map[string]any{"experience_text": normalized.ExperienceText}
	t2 := o.now()
	expRes := runStage(ctx, o.traces, o.logger, env, o.maxAttempts(), func(context.Context) (ExperienceEstimate, error) {
		return ExtractExperience(normalized), nil
	}, experienceFallback())
	metrics.record(StageExperience, "experience_ms", o.now().Sub(t2), expRes.Retries(), expRes.FallbackApplied)

	env = base
	env.Stage, env.AgentName = StageCodingRules, AgentCodingSignals
	env.RequestPayload = map[string]any{"criteria": rules.PlatformRules}
	t3 := o.now()
	codingRes := runStage(ctx, o.traces, o.logger, env, o.maxAttempts(), func(context.Context) (CodingSignals, error) {
		return ExtractCodingSignals(normalized, rules.PlatformRules), nil
	}, codingFallback())
	metrics.record(StageCodingRules, "coding_signal_ms", o.now().Sub(t3), codingRes.Retries(), codingRes.FallbackApplied)

	env = base
	env.Stage, env.AgentName = StageHardFilter, AgentHardFilter
	env.RequestPayload = map[string]any{"college_tiers": rules.CollegeTiers}
	t4 := o.now()
	hardRes := runStage(ctx, o.traces, o.logger, env, o.maxAttempts(), func(context.Context) (HardFilterResult, error) {
		return EvaluateHardFilter(rules, tierRes.Output, expRes.Output, codingRes.Output), nil
	}, hardFilterFallback())
	metrics.record(StageHardFilter, "hard_filter_ms", o.now().Sub(t4), hardRes.Retries(), hardRes.FallbackApplied)

	env = base
	env.Stage, env.AgentName = StageFitScore, AgentFitScoring
	env.RequestPayload = map[string]any{"job_description": rules.JobDescription}
	t5 := o.now()
	fitRes := runStage(ctx, o.traces, o.logger, env, o.maxAttempts(), func(context.Context) (FitScore, error) {
		return ScoreCandidateFit(normalized, hardRes.Output, tierRes.Output, expRes.Output, codingRes.Output, rules, o.config.FitWeights), nil
	}, fitFallback())
	metrics.record(StageFitScore, "fit_scoring_ms", o.now().Sub(t5), fitRes.Retries(), fitRes.FallbackApplied)

	return ranker.ScoredCandidate{
		Candidate:        candidate,
		Final:            fitRes.Output.Final,
		Sub:              fitRes.Output.Sub,
		PassesHardFilter: hardRes.Output.Passes,
		FilterReasons:    hardRes.Output.Reasons,
		Summary:          fitRes.Output.Summary,
	}
}

func (o *Orchestrator) maxAttempts() int {
	return o.config.StageRetries + 1
}

// rankWithFallback applies the tie-break ranker, degrading to the strict
// creation-time ordering if ranking panics.
func (o *Orchestrator) rankWithFallback(scored []ranker.ScoredCandidate, runID uuid.UUID, openings int, metrics *stageMetrics) (results []types.RankingResult) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		o.logger.Error("ranker failed, applying fallback ordering", zap.Any("panic", r))
		metrics.rankerFallback()

		candidates := make([]types.Candidate, 0, len(scored))
		byID := make(map[string]ranker.ScoredCandidate, len(scored))
		for _, s := range scored {
			candidates = append(candidates, s.Candidate)
			byID[s.Candidate.ID] = s
		}
		results = results[:0]
		for i, candidate := range ranker.FallbackOrder(candidates) {
			s := byID[candidate.ID]
			results = append(results, types.RankingResult{
				RunID:            runID,
				CandidateID:      candidate.ID,
				Rank:             i + 1,
				IsShortlisted:    i < openings,
				PassesHardFilter: s.PassesHardFilter,
				FinalScore:       s.Final,
				SubScores:        s.Sub,
				FilterReasons:    s.FilterReasons,
				Summary:          s.Summary,
			})
		}
	}()

	return ranker.RankCandidates(scored, runID, openings)
}

// failRun transitions the run to FAILED with the given code and message.
func (o *Orchestrator) failRun(ctx context.Context, run *types.RankingRun, code, message string) (*types.RankingRun, error) {
	completed := o.now()
	run.Status = types.StatusFailed
	run.ErrorCode = code
	run.ErrorMessage = message
	run.CompletedAt = &completed
	if err := o.store.UpdateRankingRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to mark ranking run failed: %w", err)
	}
	return run, nil
}
