package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// College tier labels produced by the classification stage. The model's
// answer is validated against this set; anything else degrades to UNKNOWN.
const (
	TierOne     = "TIER_1"
	TierTwo     = "TIER_2"
	TierThree   = "TIER_3"
	TierUnknown = "UNKNOWN"
)

// ValidTier reports whether label is a recognized college tier.
func ValidTier(label string) bool {
	switch label {
	case TierOne, TierTwo, TierThree, TierUnknown:
		return true
	}
	return false
}

// Candidate is one applicant attached to a job posting. ResumeData holds the
// raw structured résumé JSON produced by the upstream extractor.
type Candidate struct {
	ID         string    `json:"id"` // stable textual identifier, final tie-break key
	JobID      uuid.UUID `json:"job_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	ResumeData string    `json:"resume_data,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comparison operators accepted in coding-platform rules.
const (
	OperatorGTE = "gte"
	OperatorLTE = "lte"
	OperatorEQ  = "eq"
)

// PlatformRule is one recruiter-supplied coding-platform requirement,
// e.g. codeforces rating >= 1600.
type PlatformRule struct {
	Platform string  `json:"platform" validate:"required"`
	Metric   string  `json:"metric" validate:"required"`
	Operator string  `json:"operator" validate:"required,oneof=gte lte eq"`
	Value    float64 `json:"value"`
}

// RecruiterRules is the recruiter's criteria set for ranking candidates
// against a job posting.
type RecruiterRules struct {
	CollegeTiers       []string       `json:"college_tiers" validate:"required,min=1,dive,oneof=TIER_1 TIER_2 TIER_3 UNKNOWN"`
	MinExperienceYears float64        `json:"min_experience_years" validate:"gte=0"`
	MaxExperienceYears float64        `json:"max_experience_years" validate:"gtefield=MinExperienceYears"`
	PlatformRules      []PlatformRule `json:"coding_platform_rules" validate:"dive"`
	NumberOfOpenings   int            `json:"number_of_openings" validate:"gte=1"`
	JobDescription     string         `json:"job_description,omitempty"`
}

// Validate checks the recruiter rules using the validator.
func (r *RecruiterRules) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// AllowsTier reports whether the given tier is on the recruiter allow-list.
func (r *RecruiterRules) AllowsTier(tier string) bool {
	for _, allowed := range r.CollegeTiers {
		if allowed == tier {
			return true
		}
	}
	return false
}

// TierCacheEntry is a memoized institution classification keyed by the
// normalized education text. Writes are idempotent re-classifications, so
// concurrent runs may race on the same key without locking.
type TierCacheEntry struct {
	InstitutionNormalized string    `json:"institution_normalized"`
	Tier                  string    `json:"tier"`
	Confidence            float64   `json:"confidence"`
	Evidence              []string  `json:"evidence,omitempty"`
	SourceModel           string    `json:"source_model,omitempty"`
	VerifiedAt            time.Time `json:"verified_at"`
}
