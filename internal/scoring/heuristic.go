package scoring

import (
	"fmt"
	"strings"

	"github.com/jonathan/match-engine/internal/scores"
	"github.com/jonathan/match-engine/internal/types"
)

// maxReasons caps the explainability list attached to each scored job.
const maxReasons = 3

// minDescriptionLength is the completeness threshold for the quality score.
const minDescriptionLength = 120

// JobScore holds the heuristic sub-scores for one job, all clamped to [0,1].
type JobScore struct {
	Quality       float64
	Fit           float64
	Selection     float64
	SkillMatch    float64
	MatchedSkills []string
	Reasons       []string
	Why           string
}

// Scorer computes heuristic job scores under configurable weights.
type Scorer struct {
	fit      scores.FitWeights
	priority scores.PriorityWeights
}

// NewScorer creates a scorer with the given weights. Zero-value weight
// structs fall back to the documented defaults.
func NewScorer(fit scores.FitWeights, priority scores.PriorityWeights) *Scorer {
	if fit == (scores.FitWeights{}) {
		fit = scores.DefaultFitWeights()
	}
	if priority == (scores.PriorityWeights{}) {
		priority = scores.DefaultPriorityWeights()
	}
	return &Scorer{fit: fit, priority: priority}
}

// ScoreJob computes the quality, fit, and selection scores for one job
// against the normalized preferences and the user's extracted skill set.
// Deterministic and side-effect-free.
func (s *Scorer) ScoreJob(job types.Job, prefs types.JobPreferences, userSkills map[string]bool) JobScore {
	quality := s.scoreQuality(job)
	fit, skillScore, matched, reasons := s.scoreFit(job, prefs, userSkills)

	selection := scores.Clamp(
		0.45*fit +
			0.35*quality +
			0.10*s.priority.Location +
			0.10*s.priority.CompanyType,
	)

	why := "General alignment with preferences"
	if len(reasons) > 0 {
		why = strings.Join(reasons[:min(len(reasons), maxReasons)], "; ")
	}

	return JobScore{
		Quality:       quality,
		Fit:           fit,
		Selection:     selection,
		SkillMatch:    skillScore,
		MatchedSkills: matched,
		Reasons:       reasons,
		Why:           why,
	}
}

// scoreQuality derives a completeness score from the posting itself,
// independent of preference matching.
func (s *Scorer) scoreQuality(job types.Job) float64 {
	quality := 0.4
	if len(strings.TrimSpace(job.Description)) > minDescriptionLength {
		quality += 0.2
	}
	if job.ApplyURL != "" {
		quality += 0.2
	}
	if job.CompanyName != "" {
		quality += 0.2
	}
	return scores.Clamp(quality)
}

// scoreFit sums the weighted preference-match signals on top of the base
// fit, collecting a reason string per matched signal.
func (s *Scorer) scoreFit(job types.Job, prefs types.JobPreferences, userSkills map[string]bool) (float64, float64, []string, []string) {
	fit := s.fit.Base
	var reasons []string

	if job.WorkMode != "" && job.WorkMode == prefs.WorkMode {
		fit += s.fit.WorkMode
		reasons = append(reasons, "Work mode match")
	}
	if job.EmploymentType != "" && job.EmploymentType == prefs.EmploymentType {
		fit += s.fit.EmploymentType
		reasons = append(reasons, "Employment type match")
	}
	if prefs.Location != "" && strings.Contains(strings.ToLower(job.Location), prefs.Location) {
		fit += s.fit.Location
		reasons = append(reasons, "Location alignment")
	}
	if job.CompanySize != "" && job.CompanySize == prefs.CompanySizePreference {
		fit += s.fit.CompanySize
		reasons = append(reasons, "Company size preference match")
	}
	if prefs.StipendMin != nil && prefs.StipendMax != nil &&
		job.StipendMin != nil && job.StipendMax != nil {
		fit += s.fit.StipendOverlap
		reasons = append(reasons, "Stipend overlap available")
	}

	skillScore, matched := SkillMatch(userSkills, job)
	if len(matched) > 0 {
		fit += s.fit.SkillOverlap * skillScore
		displayed := matched
		suffix := ""
		if len(displayed) > 5 {
			suffix = fmt.Sprintf(" (+%d more)", len(displayed)-5)
			displayed = displayed[:5]
		}
		reasons = append(reasons, fmt.Sprintf("Skills match: %s%s", strings.Join(displayed, ", "), suffix))
	}

	return scores.Clamp(fit), scores.Round4(skillScore), matched, reasons
}
