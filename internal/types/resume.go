package types

// SkillGroup is one category of skills extracted from a résumé.
type SkillGroup struct {
	Category string   `json:"category,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// ExperienceEntry is one role held by the candidate.
type ExperienceEntry struct {
	Company     string `json:"company,omitempty"`
	Position    string `json:"position,omitempty"`
	Description string `json:"description,omitempty"`
}

// EducationEntry is one education record on the résumé.
type EducationEntry struct {
	Institution  string `json:"institution,omitempty"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
}

// ResumeMetadata is the structured résumé extraction produced by the
// upstream parser. The core consumes it as-is.
type ResumeMetadata struct {
	Summary    string            `json:"summary,omitempty"`
	Skills     []SkillGroup      `json:"skills,omitempty"`
	Experience []ExperienceEntry `json:"experience,omitempty"`
	Education  []EducationEntry  `json:"education,omitempty"`
}

// CandidateProfile is the seeker-side snapshot attached to a matching run.
type CandidateProfile struct {
	ResumeMetadata ResumeMetadata `json:"resume_metadata,omitempty"`
	CareerStage    string         `json:"career_stage,omitempty"`
	RiskTolerance  string         `json:"risk_tolerance,omitempty"`
}

// CareerStageOrDefault returns the career stage, defaulting to EARLY.
func (p *CandidateProfile) CareerStageOrDefault() string {
	if p == nil || p.CareerStage == "" {
		return "EARLY"
	}
	return p.CareerStage
}

// RiskToleranceOrDefault returns the risk tolerance, defaulting to LOW.
func (p *CandidateProfile) RiskToleranceOrDefault() string {
	if p == nil || p.RiskTolerance == "" {
		return "LOW"
	}
	return p.RiskTolerance
}
