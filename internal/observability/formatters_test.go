package observability

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/match-engine/internal/types"
)

func TestPrintMatchingRun(t *testing.T) {
	var buf bytes.Buffer
	run := &types.MatchingRun{
		ID:                uuid.New(),
		Status:            types.StatusCompleted,
		FilteredJobsCount: 42,
		TimingMetrics: map[string]any{
			"filtering_ms":          int64(12),
			"total_ms":              int64(340),
			"deterministic_metrics": map[string]int{"work_mode": 42},
		},
	}

	NewPrinter(&buf).PrintMatchingRun(run)
	out := buf.String()
	assert.Contains(t, out, "MATCHING RUN")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "42 passed the filter")
	assert.Contains(t, out, "filtering_ms")
	assert.Contains(t, out, "12 ms")
}

func TestPrintMatchResults(t *testing.T) {
	var buf bytes.Buffer
	results := []types.MatchResult{
		{Rank: 1, JobID: uuid.New(), SelectionProbability: 0.91, FitScore: 0.88, JobQualityScore: 0.8, Why: "Strong match on work mode and location"},
		{Rank: 2, JobID: uuid.New(), SelectionProbability: 0.72, FitScore: 0.7, JobQualityScore: 0.6, Why: "Partial match"},
	}

	NewPrinter(&buf).PrintMatchResults(results)
	out := buf.String()
	assert.Contains(t, out, "JOB MATCHES")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "Selection: 0.91")
	assert.Contains(t, out, "#2")
}

func TestPrintMatchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintMatchResults(nil)
	assert.Contains(t, buf.String(), "No matching jobs found")
}

func TestPrintRankingResults(t *testing.T) {
	var buf bytes.Buffer
	results := []types.RankingResult{
		{
			Rank: 1, CandidateID: "c9", IsShortlisted: true, PassesHardFilter: true,
			FinalScore: 81.5,
			SubScores:  types.SubScores{EducationFit: 100, ExperienceFit: 100, CodingFit: 50, JDRelevance: 40},
		},
		{
			Rank: 2, CandidateID: "c3", PassesHardFilter: false,
			FilterReasons: []string{"College tier not in preferred list"},
		},
	}

	NewPrinter(&buf).PrintRankingResults(results)
	out := buf.String()
	assert.Contains(t, out, "★ #1")
	assert.Contains(t, out, "c9")
	assert.Contains(t, out, "edu 100")
	assert.Contains(t, out, "rejected: College tier not in preferred")
}

func TestPrintFilterMetrics(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFilterMetrics(map[string]int{
		"work_mode":       120,
		"employment_type": 80,
	})
	out := buf.String()
	assert.Contains(t, out, "FILTER SURVIVORS")
	assert.Contains(t, out, "work_mode")
	assert.Contains(t, out, "120")
}

func TestPrintRankingRun_WithError(t *testing.T) {
	var buf bytes.Buffer
	run := &types.RankingRun{
		ID:           uuid.New(),
		Status:       types.StatusFailed,
		ErrorCode:    "MISSING_PREFERENCE",
		ErrorMessage: "no recruiter criteria configured",
	}

	NewPrinter(&buf).PrintRankingRun(run)
	out := buf.String()
	assert.Contains(t, out, "CANDIDATE RANKING RUN")
	assert.Contains(t, out, "MISSING_PREFERENCE")
}
