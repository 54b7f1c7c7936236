// Package refinement re-scores the top heuristic matches with a
// budget-limited model pass and blends the two signals. A run that spends
// its whole budget still completes; unrefined jobs keep their heuristic
// scores.
package refinement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/match-engine/internal/llm"
	"github.com/jonathan/match-engine/internal/prompts"
	"github.com/jonathan/match-engine/internal/schemas"
	"github.com/jonathan/match-engine/internal/scores"
	"github.com/jonathan/match-engine/internal/scoring"
	"github.com/jonathan/match-engine/internal/types"
)

// Skip reason codes attached to unrefined items.
const (
	ReasonDisabled       = "disabled"
	ReasonOutsideTopN    = "outside_top_n"
	ReasonBudgetExceeded = "budget_exceeded"
	ReasonModelError     = "model_error"
	ReasonInvalidPayload = "invalid_payload"
)

// DefaultTopN is how many of the leading heuristic matches are re-scored.
const DefaultTopN = 10

// DefaultBudget bounds the total wall-clock time spent on model calls per
// run. The budget is checked before each call, never mid-call.
const DefaultBudget = 60 * time.Second

// modelScoreSchema constrains the model's scoring payload. Anything that
// fails this schema is discarded and the heuristic score stands.
const modelScoreSchema = `{
	"type": "object",
	"required": ["role_fit", "skill_alignment", "career_trajectory", "culture_signals", "overall_score", "reasoning"],
	"properties": {
		"role_fit": {"type": "number", "minimum": 0, "maximum": 1},
		"skill_alignment": {"type": "number", "minimum": 0, "maximum": 1},
		"career_trajectory": {"type": "number", "minimum": 0, "maximum": 1},
		"culture_signals": {"type": "number", "minimum": 0, "maximum": 1},
		"overall_score": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string"}
	}
}`

// ModelScores is the validated four-dimension scoring payload.
type ModelScores struct {
	RoleFit          float64 `json:"role_fit"`
	SkillAlignment   float64 `json:"skill_alignment"`
	CareerTrajectory float64 `json:"career_trajectory"`
	CultureSignals   float64 `json:"culture_signals"`
	OverallScore     float64 `json:"overall_score"`
	Reasoning        string  `json:"reasoning"`
}

// Config controls the refinement pass.
type Config struct {
	Enabled bool
	TopN    int
	Budget  time.Duration
	Tier    llm.ModelTier
	Blend   scores.BlendWeights
}

// DefaultConfig returns an enabled refinement configuration with the
// documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		TopN:    DefaultTopN,
		Budget:  DefaultBudget,
		Tier:    llm.TierStandard,
		Blend:   scores.DefaultBlendWeights(),
	}
}

// Item is one heuristic-scored job entering refinement, ordered best-first
// by the caller.
type Item struct {
	Job       types.Job
	Heuristic scoring.JobScore
}

// Outcome is the per-item refinement result. When Refined is false, Reason
// names why and BlendedSelection equals the heuristic selection score.
type Outcome struct {
	Refined          bool
	Reason           string
	Model            *ModelScores
	BlendedSelection float64
	LatencyMs        int64
}

// Metrics summarizes one refinement pass for the run's timing metrics.
type Metrics struct {
	Attempted      int   `json:"attempted"`
	Refined        int   `json:"refined"`
	BudgetExceeded int   `json:"budget_exceeded"`
	Errors         int   `json:"errors"`
	ElapsedMs      int64 `json:"elapsed_ms"`
}

// Refiner runs the model pass over the leading heuristic matches.
type Refiner struct {
	client llm.Client
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewRefiner creates a refiner. A nil logger falls back to a no-op logger
// and zero-value config fields fall back to the defaults.
func NewRefiner(client llm.Client, config Config, logger *zap.Logger) *Refiner {
	if config.TopN <= 0 {
		config.TopN = DefaultTopN
	}
	if config.Budget < 0 {
		config.Budget = DefaultBudget
	}
	if config.Tier == "" {
		config.Tier = llm.TierStandard
	}
	if config.Blend == (scores.BlendWeights{}) {
		config.Blend = scores.DefaultBlendWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{
		client: client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Refine re-scores up to TopN items in order until the budget is spent.
// Returns one outcome per input item, index-aligned. Never returns an
// error: per-item failures degrade to the heuristic score.
func (r *Refiner) Refine(ctx context.Context, profile types.CandidateProfile, prefs types.JobPreferences, items []Item) ([]Outcome, Metrics) {
	outcomes := make([]Outcome, len(items))
	for i := range items {
		outcomes[i] = Outcome{
			Reason:           ReasonDisabled,
			BlendedSelection: items[i].Heuristic.Selection,
		}
	}
	if !r.config.Enabled || r.client == nil || len(items) == 0 {
		return outcomes, Metrics{}
	}

	start := r.now()
	metrics := Metrics{}
	candidateSummary := summarizeProfile(profile, prefs)

	for i := range items {
		if i >= r.config.TopN {
			outcomes[i].Reason = ReasonOutsideTopN
			continue
		}
		if elapsed := r.now().Sub(start); elapsed >= r.config.Budget {
			outcomes[i].Reason = ReasonBudgetExceeded
			metrics.BudgetExceeded++
			continue
		}

		metrics.Attempted++
		outcome := r.refineOne(ctx, candidateSummary, items[i])
		outcome.BlendedSelection = items[i].Heuristic.Selection
		if outcome.Refined {
			outcome.BlendedSelection = scores.Clamp(
				r.config.Blend.Heuristic*items[i].Heuristic.Selection +
					r.config.Blend.Model*outcome.Model.OverallScore,
			)
			metrics.Refined++
		} else {
			metrics.Errors++
			r.logger.Warn("refinement degraded to heuristic score",
				zap.String("job_id", items[i].Job.JobID),
				zap.String("reason", outcome.Reason))
		}
		outcomes[i] = outcome
	}

	metrics.ElapsedMs = r.now().Sub(start).Milliseconds()
	return outcomes, metrics
}

// refineOne performs a single scoring call and validates the payload.
func (r *Refiner) refineOne(ctx context.Context, candidateSummary string, item Item) Outcome {
	prompt := prompts.Format(prompts.MustGet("scoring.json", "score-job-fit"), map[string]string{
		"CandidateSummary": candidateSummary,
		"JobSummary":       summarizeJob(item.Job, item.Heuristic),
	})

	callStart := r.now()
	raw, err := r.client.GenerateJSON(ctx, prompt, r.config.Tier)
	latency := r.now().Sub(callStart).Milliseconds()
	if err != nil {
		return Outcome{Reason: ReasonModelError, LatencyMs: latency}
	}

	payload := llm.ExtractJSONObject(raw)
	if payload == "" {
		return Outcome{Reason: ReasonInvalidPayload, LatencyMs: latency}
	}
	if err := schemas.ValidateJSONString(modelScoreSchema, payload); err != nil {
		return Outcome{Reason: ReasonInvalidPayload, LatencyMs: latency}
	}

	var model ModelScores
	if err := json.Unmarshal([]byte(payload), &model); err != nil {
		return Outcome{Reason: ReasonInvalidPayload, LatencyMs: latency}
	}

	return Outcome{Refined: true, Model: &model, LatencyMs: latency}
}

// summarizeProfile renders the candidate snapshot as compact prompt text.
func summarizeProfile(profile types.CandidateProfile, prefs types.JobPreferences) string {
	var sb strings.Builder
	if profile.ResumeMetadata.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", profile.ResumeMetadata.Summary)
	}
	var skills []string
	for _, group := range profile.ResumeMetadata.Skills {
		skills = append(skills, group.Skills...)
	}
	if len(skills) > 0 {
		fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(skills, ", "))
	}
	for _, exp := range profile.ResumeMetadata.Experience {
		fmt.Fprintf(&sb, "Experience: %s at %s\n", exp.Position, exp.Company)
	}
	fmt.Fprintf(&sb, "Career stage: %s, risk tolerance: %s\n",
		profile.CareerStageOrDefault(), profile.RiskToleranceOrDefault())
	fmt.Fprintf(&sb, "Preferences: %s %s in %s, company size %s",
		prefs.WorkMode, prefs.EmploymentType, prefs.Location, prefs.CompanySizePreference)
	return sb.String()
}

// summarizeJob renders one job and its heuristic signals as prompt text.
func summarizeJob(job types.Job, heuristic scoring.JobScore) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nCompany: %s (%s)\nLocation: %s, %s, %s\n",
		job.Title, job.CompanyName, job.CompanySize, job.Location, job.WorkMode, job.EmploymentType)
	if job.Sector != "" {
		fmt.Fprintf(&sb, "Sector: %s\n", job.Sector)
	}
	description := job.Description
	if len(description) > 2000 {
		description = description[:2000]
	}
	if description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", description)
	}
	if len(heuristic.MatchedSkills) > 0 {
		fmt.Fprintf(&sb, "Matched skills: %s\n", strings.Join(heuristic.MatchedSkills, ", "))
	}
	fmt.Fprintf(&sb, "Heuristic fit: %.2f, quality: %.2f", heuristic.Fit, heuristic.Quality)
	return sb.String()
}
