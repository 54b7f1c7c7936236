// Package scores provides the shared score value contract used by every
// scoring component: clamping, rounding, and the configurable weight maps.
package scores

import "math"

// Clamp constrains a score to the [0.0, 1.0] range used for all
// probability-style scores.
func Clamp(value float64) float64 {
	if value < 0.0 {
		return 0.0
	}
	if value > 1.0 {
		return 1.0
	}
	return value
}

// Clamp100 constrains a sub-score to the [0, 100] range used by the
// candidate-ranking fit scores.
func Clamp100(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// Round2 rounds a score to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Round4 rounds a score to four decimal places. Used for skill-match
// fractions where more precision aids tie-breaking diagnostics.
func Round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}

// PriorityWeights describes how the selection probability blends the
// candidate's stated priorities. Values should sum to roughly 1.0 but are
// not required to; all derived scores are clamped.
type PriorityWeights struct {
	SkillMatch  float64 `json:"skill_match"`
	Stipend     float64 `json:"stipend"`
	Location    float64 `json:"location"`
	CompanyType float64 `json:"company_type"`
}

// DefaultPriorityWeights returns the documented default priority weights.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{
		SkillMatch:  0.35,
		Stipend:     0.25,
		Location:    0.20,
		CompanyType: 0.20,
	}
}

// FitWeights describes the contribution of each deterministic fit signal.
type FitWeights struct {
	Base           float64 `json:"base"`
	WorkMode       float64 `json:"work_mode"`
	EmploymentType float64 `json:"employment_type"`
	Location       float64 `json:"location"`
	CompanySize    float64 `json:"company_size"`
	StipendOverlap float64 `json:"stipend_overlap"`
	SkillOverlap   float64 `json:"skill_overlap"`
}

// DefaultFitWeights returns the documented default fit weights.
func DefaultFitWeights() FitWeights {
	return FitWeights{
		Base:           0.35,
		WorkMode:       0.20,
		EmploymentType: 0.20,
		Location:       0.10,
		CompanySize:    0.10,
		StipendOverlap: 0.05,
		SkillOverlap:   0.15,
	}
}

// CandidateFitWeights describes the composite weighting of the candidate
// fit score produced by the ranking pipeline's final scoring stage.
type CandidateFitWeights struct {
	Education   float64 `json:"education"`
	Experience  float64 `json:"experience"`
	Coding      float64 `json:"coding"`
	JDRelevance float64 `json:"jd_relevance"`
}

// DefaultCandidateFitWeights returns the documented default composite weights.
func DefaultCandidateFitWeights() CandidateFitWeights {
	return CandidateFitWeights{
		Education:   0.25,
		Experience:  0.25,
		Coding:      0.30,
		JDRelevance: 0.20,
	}
}

// BlendWeights describes how a model-derived score is blended with the
// heuristic score during refinement.
type BlendWeights struct {
	Heuristic float64 `json:"heuristic"`
	Model     float64 `json:"model"`
}

// DefaultBlendWeights returns the documented default blend weights.
func DefaultBlendWeights() BlendWeights {
	return BlendWeights{Heuristic: 0.40, Model: 0.60}
}
