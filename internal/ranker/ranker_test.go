package ranker

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/match-engine/internal/types"
)

func timePtr(v time.Time) *time.Time { return &v }

func scoredJob(jobID string, selection float64) ScoredJob {
	return ScoredJob{
		Job: types.Job{
			ID:        uuid.New(),
			JobID:     jobID,
			CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Selection: selection,
		Fit:       selection,
		Quality:   0.8,
		Why:       "Work mode match",
	}
}

func TestRankJobs_OrderAndContiguousRanks(t *testing.T) {
	runID := uuid.New()
	scored := []ScoredJob{
		scoredJob("j1", 0.50),
		scoredJob("j2", 0.90),
		scoredJob("j3", 0.70),
	}

	results := RankJobs(scored, runID, 0)
	require.Len(t, results, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Rank, results[1].Rank, results[2].Rank})
	assert.Equal(t, 0.90, results[0].SelectionProbability)
	assert.Equal(t, 0.70, results[1].SelectionProbability)
	assert.Equal(t, runID, results[0].RunID)
}

func TestRankJobs_CapsAtTopResults(t *testing.T) {
	var scored []ScoredJob
	for i := 0; i < 12; i++ {
		scored = append(scored, scoredJob(fmt.Sprintf("j%02d", i), float64(i)/100))
	}

	results := RankJobs(scored, uuid.New(), 0)
	assert.Len(t, results, TopJobResults)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, TopJobResults, results[len(results)-1].Rank)
}

func TestRankJobs_TieBrokenByRecencyThenJobID(t *testing.T) {
	older := scoredJob("a", 0.5)
	older.Job.PublishedAt = timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := scoredJob("b", 0.5)
	newer.Job.PublishedAt = timePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	results := RankJobs([]ScoredJob{older, newer}, uuid.New(), 0)
	require.Len(t, results, 2)
	assert.Equal(t, newer.Job.ID, results[0].JobID)

	// identical recency falls back to job id ascending
	sameB := scoredJob("b", 0.5)
	sameA := scoredJob("a", 0.5)
	results = RankJobs([]ScoredJob{sameB, sameA}, uuid.New(), 0)
	assert.Equal(t, sameA.Job.ID, results[0].JobID)
}

func TestRankJobs_DoesNotMutateInput(t *testing.T) {
	scored := []ScoredJob{scoredJob("j2", 0.1), scoredJob("j1", 0.9)}
	_ = RankJobs(scored, uuid.New(), 0)
	assert.Equal(t, "j2", scored[0].Job.JobID)
}

func scoredCandidate(id string, final float64, coding, experience int, passes bool) ScoredCandidate {
	return ScoredCandidate{
		Candidate:        types.Candidate{ID: id, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		Final:            final,
		Sub:              types.SubScores{CodingFit: coding, ExperienceFit: experience},
		PassesHardFilter: passes,
	}
}

func TestRankCandidates_EveryCandidateGetsARow(t *testing.T) {
	runID := uuid.New()
	scored := []ScoredCandidate{
		scoredCandidate("c1", 82.5, 70, 80, true),
		scoredCandidate("c2", 0, 0, 0, false),
		scoredCandidate("c3", 91.0, 85, 90, true),
	}

	results := RankCandidates(scored, runID, 1)
	require.Len(t, results, 3)

	assert.Equal(t, "c3", results[0].CandidateID)
	assert.True(t, results[0].IsShortlisted)
	assert.Equal(t, "c1", results[1].CandidateID)
	assert.False(t, results[1].IsShortlisted) // only one opening
	assert.Equal(t, "c2", results[2].CandidateID)
	assert.False(t, results[2].PassesHardFilter)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Rank, results[1].Rank, results[2].Rank})
}

func TestRankCandidates_ShortlistIsTopRanks(t *testing.T) {
	// Shortlisting is purely positional: the top openings ranks are marked.
	scored := []ScoredCandidate{
		scoredCandidate("low", 60.0, 50, 50, true),
		scoredCandidate("high", 95.0, 90, 90, true),
		scoredCandidate("mid", 80.0, 70, 70, true),
	}

	results := RankCandidates(scored, uuid.New(), 2)
	require.Len(t, results, 3)
	assert.True(t, results[0].IsShortlisted)
	assert.True(t, results[1].IsShortlisted)
	assert.False(t, results[2].IsShortlisted)
}

func TestRankCandidates_TieBreakChain(t *testing.T) {
	cases := []struct {
		name  string
		a, b  ScoredCandidate
		first string
	}{
		{
			name:  "coding_fit_breaks_final_tie",
			a:     scoredCandidate("a", 80, 60, 90, true),
			b:     scoredCandidate("b", 80, 70, 50, true),
			first: "b",
		},
		{
			name:  "experience_breaks_coding_tie",
			a:     scoredCandidate("a", 80, 70, 50, true),
			b:     scoredCandidate("b", 80, 70, 60, true),
			first: "b",
		},
		{
			name:  "id_breaks_full_tie",
			a:     scoredCandidate("b", 80, 70, 60, true),
			b:     scoredCandidate("a", 80, 70, 60, true),
			first: "a",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results := RankCandidates([]ScoredCandidate{tc.a, tc.b}, uuid.New(), 2)
			require.Len(t, results, 2)
			assert.Equal(t, tc.first, results[0].CandidateID)
		})
	}
}

func TestFallbackOrder(t *testing.T) {
	early := types.Candidate{ID: "z", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	late := types.Candidate{ID: "a", CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	tied := types.Candidate{ID: "b", CreatedAt: late.CreatedAt}

	ordered := FallbackOrder([]types.Candidate{late, tied, early})
	require.Len(t, ordered, 3)
	assert.Equal(t, "z", ordered[0].ID)
	assert.Equal(t, "a", ordered[1].ID)
	assert.Equal(t, "b", ordered[2].ID)
}
