package types

import (
	"time"

	"github.com/google/uuid"
)

// Run lifecycle states. COMPLETED and FAILED are terminal: re-invoking the
// pipeline on a terminal run returns it unchanged.
const (
	StatusPending      = "PENDING"
	StatusFiltering    = "FILTERING"
	StatusAgentRunning = "AGENT_RUNNING"
	StatusCompleted    = "COMPLETED"
	StatusFailed       = "FAILED"
)

// IsTerminalStatus reports whether a run status is terminal.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// MatchingRun is one execution of the seeker-side job matching pipeline.
// Mutated only by the run lifecycle; the preference and profile snapshots
// are immutable once the run starts.
type MatchingRun struct {
	ID                  uuid.UUID        `json:"id"`
	UserID              uuid.UUID        `json:"user_id"`
	Status              string           `json:"status"`
	PreferencesSnapshot JobPreferences   `json:"preferences_snapshot"`
	ProfileSnapshot     CandidateProfile `json:"candidate_profile_snapshot"`
	FilteredJobsCount   int              `json:"filtered_jobs_count"`
	ErrorCode           string           `json:"error_code,omitempty"`
	ErrorMessage        string           `json:"error_message,omitempty"`
	TimingMetrics       map[string]any   `json:"timing_metrics,omitempty"`
	StartedAt           *time.Time       `json:"started_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// IsTerminal reports whether the run has reached a terminal state.
func (r *MatchingRun) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// MatchResult is one ranked job belonging to a matching run.
type MatchResult struct {
	RunID                uuid.UUID      `json:"run_id"`
	JobID                uuid.UUID      `json:"job_id"`
	Rank                 int            `json:"rank"`
	SelectionProbability float64        `json:"selection_probability"`
	FitScore             float64        `json:"fit_score"`
	JobQualityScore      float64        `json:"job_quality_score"`
	Why                  string         `json:"why"`
	AgentTrace           map[string]any `json:"agent_trace,omitempty"`
}

// RankingRun is one execution of the recruiter-side candidate ranking
// pipeline for a job posting.
type RankingRun struct {
	ID                  uuid.UUID      `json:"id"`
	JobID               uuid.UUID      `json:"job_id"`
	Status              string         `json:"status"`
	BatchSize           int            `json:"batch_size"`
	ModelName           string         `json:"model_name,omitempty"`
	TotalCandidates     int            `json:"total_candidates"`
	ProcessedCandidates int            `json:"processed_candidates"`
	ShortlistedCount    int            `json:"shortlisted_count"`
	ErrorCode           string         `json:"error_code,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	TimingMetrics       map[string]any `json:"timing_metrics,omitempty"`
	StartedAt           *time.Time     `json:"started_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the run has reached a terminal state.
func (r *RankingRun) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// SubScores holds the 0-100 sub-scores of the candidate fit composite.
type SubScores struct {
	EducationFit  int `json:"education_fit"`
	ExperienceFit int `json:"experience_fit"`
	CodingFit     int `json:"coding_fit"`
	JDRelevance   int `json:"jd_relevance"`
}

// RankingResult is one ranked candidate belonging to a ranking run.
type RankingResult struct {
	RunID            uuid.UUID `json:"run_id"`
	CandidateID      string    `json:"candidate_id"`
	Rank             int       `json:"rank"`
	IsShortlisted    bool      `json:"is_shortlisted"`
	PassesHardFilter bool      `json:"passes_hard_filter"`
	FinalScore       float64   `json:"final_score"`
	SubScores        SubScores `json:"sub_scores"`
	FilterReasons    []string  `json:"filter_reasons,omitempty"`
	Summary          string    `json:"summary,omitempty"`
}
