// Package ranker assigns final ranks to scored jobs and candidates using
// deterministic, total orderings. Equal inputs always rank identically.
package ranker

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/match-engine/internal/types"
)

// TopJobResults is the number of ranked jobs persisted per matching run.
const TopJobResults = 5

// ScoredJob pairs a job with its blended scores, ready for ranking.
type ScoredJob struct {
	Job       types.Job
	Selection float64
	Fit       float64
	Quality   float64
	Why       string
	Trace     map[string]any
}

// RankJobs orders scored jobs by selection probability descending, breaking
// ties by publish recency, then insertion recency, then external job id
// ascending. Ranks are contiguous from 1 and the result is capped at limit
// (TopJobResults when limit <= 0). The input slice is not mutated.
func RankJobs(scored []ScoredJob, runID uuid.UUID, limit int) []types.MatchResult {
	if limit <= 0 {
		limit = TopJobResults
	}

	ordered := make([]ScoredJob, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]
		if a.Selection != b.Selection {
			return a.Selection > b.Selection
		}
		if a.Job.PublishedOrdinal() != b.Job.PublishedOrdinal() {
			return a.Job.PublishedOrdinal() > b.Job.PublishedOrdinal()
		}
		if a.Job.CreatedOrdinal() != b.Job.CreatedOrdinal() {
			return a.Job.CreatedOrdinal() > b.Job.CreatedOrdinal()
		}
		return a.Job.JobID < b.Job.JobID
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	results := make([]types.MatchResult, 0, len(ordered))
	for i, s := range ordered {
		results = append(results, types.MatchResult{
			RunID:                runID,
			JobID:                s.Job.ID,
			Rank:                 i + 1,
			SelectionProbability: s.Selection,
			FitScore:             s.Fit,
			JobQualityScore:      s.Quality,
			Why:                  s.Why,
			AgentTrace:           s.Trace,
		})
	}
	return results
}

// ScoredCandidate pairs a candidate with the pipeline's composite scores.
type ScoredCandidate struct {
	Candidate        types.Candidate
	Final            float64
	Sub              types.SubScores
	PassesHardFilter bool
	FilterReasons    []string
	Summary          string
}

// RankCandidates orders all scored candidates by final score descending,
// breaking ties by coding fit, then experience fit, then candidate id
// ascending. Every candidate gets a result row with a contiguous rank; the
// top openings ranks are marked shortlisted. The input slice is not mutated.
func RankCandidates(scored []ScoredCandidate, runID uuid.UUID, openings int) []types.RankingResult {
	ordered := make([]ScoredCandidate, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]
		if a.Final != b.Final {
			return a.Final > b.Final
		}
		if a.Sub.CodingFit != b.Sub.CodingFit {
			return a.Sub.CodingFit > b.Sub.CodingFit
		}
		if a.Sub.ExperienceFit != b.Sub.ExperienceFit {
			return a.Sub.ExperienceFit > b.Sub.ExperienceFit
		}
		return a.Candidate.ID < b.Candidate.ID
	})

	results := make([]types.RankingResult, 0, len(ordered))
	for i, s := range ordered {
		results = append(results, types.RankingResult{
			RunID:            runID,
			CandidateID:      s.Candidate.ID,
			Rank:             i + 1,
			IsShortlisted:    i < openings,
			PassesHardFilter: s.PassesHardFilter,
			FinalScore:       s.Final,
			SubScores:        s.Sub,
			FilterReasons:    s.FilterReasons,
			Summary:          s.Summary,
		})
	}
	return results
}

// FallbackOrder sorts candidates by creation time ascending, then id
// ascending. Used to produce a stable processing order when no scores
// exist yet. Returns a new slice.
func FallbackOrder(candidates []types.Candidate) []types.Candidate {
	ordered := make([]types.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ordered
}
