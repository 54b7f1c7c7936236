// Package types provides type definitions for the structured data exchanged
// between the matching and ranking pipeline components.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Work mode values recognized by the deterministic filter.
const (
	WorkModeRemote = "REMOTE"
	WorkModeOnsite = "ONSITE"
	WorkModeHybrid = "HYBRID"
)

// EmploymentTypeInternship enables the internship-duration filter predicate.
const EmploymentTypeInternship = "INTERNSHIP"

// Job represents one posting in the job catalog.
type Job struct {
	ID                      uuid.UUID  `json:"id"`
	JobID                   string     `json:"job_id"` // external posting id, stable tie-break key
	Title                   string     `json:"title"`
	Description             string     `json:"description,omitempty"`
	DescriptionHTML         string     `json:"description_html,omitempty"`
	CompanyName             string     `json:"company_name"`
	CompanyURL              string     `json:"company_url,omitempty"`
	Location                string     `json:"location,omitempty"`
	WorkMode                string     `json:"work_mode,omitempty"`
	EmploymentType          string     `json:"employment_type,omitempty"`
	ExperienceLevel         string     `json:"experience_level,omitempty"`
	WorkType                string     `json:"work_type,omitempty"`
	Sector                  string     `json:"sector,omitempty"`
	CompanySize             string     `json:"company_size,omitempty"`
	StipendMin              *int       `json:"stipend_min,omitempty"`
	StipendMax              *int       `json:"stipend_max,omitempty"`
	StipendCurrency         string     `json:"stipend_currency,omitempty"`
	InternshipDurationWeeks *int       `json:"internship_duration_weeks,omitempty"`
	ApplyURL                string     `json:"apply_url,omitempty"`
	JobURL                  string     `json:"job_url,omitempty"`
	PublishedAt             *time.Time `json:"published_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// PublishedOrdinal returns a sortable ordinal for the publish date.
// Jobs without a publish date sort last among equals.
func (j *Job) PublishedOrdinal() int64 {
	if j.PublishedAt == nil {
		return 0
	}
	return j.PublishedAt.Unix()
}

// CreatedOrdinal returns a sortable ordinal for the catalog insertion time.
func (j *Job) CreatedOrdinal() int64 {
	if j.CreatedAt.IsZero() {
		return 0
	}
	return j.CreatedAt.Unix()
}
