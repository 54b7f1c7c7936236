package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// JobPreferences is the seeker's normalized preference snapshot consumed by
// the deterministic filter and the heuristic scorer. It is validated upstream
// but re-checked here because a malformed snapshot must fail the run with an
// input-error code rather than a retry.
type JobPreferences struct {
	WorkMode              string `json:"work_mode" validate:"required"`
	EmploymentType        string `json:"employment_type" validate:"required"`
	Location              string `json:"location" validate:"required"`
	CompanySizePreference string `json:"company_size_preference" validate:"required"`

	InternshipDurationWeeks *int `json:"internship_duration_weeks,omitempty"`

	StipendMin      *int   `json:"stipend_min,omitempty"`
	StipendMax      *int   `json:"stipend_max,omitempty"`
	StipendCurrency string `json:"stipend_currency,omitempty"`

	ExperienceLevel string `json:"experience_level,omitempty"`

	PreferredSectors   []string `json:"preferred_sectors,omitempty"`
	ExcludedSectors    []string `json:"excluded_sectors,omitempty"`
	PreferredRoles     []string `json:"preferred_roles,omitempty"`
	ExcludedKeywords   []string `json:"excluded_keywords,omitempty"`
	ExcludedCompanies  []string `json:"excluded_companies,omitempty"`
	PreferredCompanies []string `json:"preferred_companies,omitempty"`
}

// Validate checks the preference snapshot using the validator.
func (p *JobPreferences) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Normalized returns a copy with the string fields lowered and trimmed and
// the stipend currency defaulted, so filtering and scoring see a canonical
// shape regardless of how the snapshot was captured.
func (p JobPreferences) Normalized() JobPreferences {
	normalized := p
	normalized.Location = strings.ToLower(strings.TrimSpace(p.Location))
	if normalized.StipendCurrency == "" {
		normalized.StipendCurrency = "INR"
	}
	normalized.PreferredSectors = normalizeList(p.PreferredSectors)
	normalized.ExcludedSectors = normalizeList(p.ExcludedSectors)
	normalized.PreferredRoles = normalizeList(p.PreferredRoles)
	normalized.ExcludedKeywords = normalizeList(p.ExcludedKeywords)
	normalized.ExcludedCompanies = normalizeList(p.ExcludedCompanies)
	normalized.PreferredCompanies = normalizeList(p.PreferredCompanies)
	return normalized
}

func normalizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.ToLower(strings.TrimSpace(item))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
