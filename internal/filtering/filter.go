// Package filtering narrows the job catalog to a bounded candidate set using
// deterministic predicate chains before any model-assisted scoring runs.
package filtering

import (
	"sort"
	"strings"

	"github.com/jonathan/match-engine/internal/types"
)

// MaxAgentJobs caps the filtered set to bound downstream scoring cost.
const MaxAgentJobs = 300

// Metric keys, in predicate application order.
const (
	MetricInitialCount           = "initial_count"
	MetricAfterPrimaryFilters    = "after_primary_filters"
	MetricAfterInternshipWeeks   = "after_internship_duration"
	MetricAfterStipendOverlap    = "after_stipend_overlap"
	MetricAfterExperienceLevel   = "after_experience_level"
	MetricAfterExcludedSectors   = "after_excluded_sectors"
	MetricAfterPreferredSectors  = "after_preferred_sectors"
	MetricAfterExcludedKeywords  = "after_excluded_keywords"
	MetricAfterExcludedCompanies = "after_excluded_companies"
	MetricOrderedCount           = "ordered_count"
	MetricCappedCount            = "capped_count"
)

// Result holds the capped survivor set, the pre-cap total, and the
// per-predicate survivor counts used to diagnose over/under-filtering.
type Result struct {
	Jobs            []types.Job
	TotalConsidered int
	Metrics         map[string]int
}

// FilterJobs applies the deterministic predicate chain in order, sorts the
// survivors by recency, and caps the result at MaxAgentJobs. Pure function
// of its inputs; the caller owns normalizing the preferences first.
func FilterJobs(jobs []types.Job, prefs types.JobPreferences) Result {
	metrics := map[string]int{
		MetricInitialCount: len(jobs),
	}

	survivors := make([]types.Job, 0, len(jobs))
	for _, job := range jobs {
		if matchesPrimary(job, prefs) {
			survivors = append(survivors, job)
		}
	}
	metrics[MetricAfterPrimaryFilters] = len(survivors)

	if prefs.EmploymentType == types.EmploymentTypeInternship && prefs.InternshipDurationWeeks != nil {
		survivors = keep(survivors, func(job types.Job) bool {
			return job.InternshipDurationWeeks != nil && *job.InternshipDurationWeeks == *prefs.InternshipDurationWeeks
		})
		metrics[MetricAfterInternshipWeeks] = len(survivors)
	}

	if prefs.StipendMin != nil && prefs.StipendMax != nil {
		survivors = keep(survivors, func(job types.Job) bool {
			return stipendOverlaps(job, prefs)
		})
		metrics[MetricAfterStipendOverlap] = len(survivors)
	}

	if prefs.ExperienceLevel != "" {
		survivors = keep(survivors, func(job types.Job) bool {
			return job.ExperienceLevel == prefs.ExperienceLevel
		})
		metrics[MetricAfterExperienceLevel] = len(survivors)
	}

	if len(prefs.ExcludedSectors) > 0 {
		survivors = keep(survivors, func(job types.Job) bool {
			return !containsAny(job.Sector, prefs.ExcludedSectors)
		})
		metrics[MetricAfterExcludedSectors] = len(survivors)
	}

	if len(prefs.PreferredSectors) > 0 {
		survivors = keep(survivors, func(job types.Job) bool {
			return containsAny(job.Sector, prefs.PreferredSectors)
		})
		metrics[MetricAfterPreferredSectors] = len(survivors)
	}

	if len(prefs.ExcludedKeywords) > 0 {
		survivors = keep(survivors, func(job types.Job) bool {
			return !containsAny(job.Title, prefs.ExcludedKeywords)
		})
		metrics[MetricAfterExcludedKeywords] = len(survivors)
	}

	if len(prefs.ExcludedCompanies) > 0 {
		survivors = keep(survivors, func(job types.Job) bool {
			return !containsAny(job.CompanyName, prefs.ExcludedCompanies)
		})
		metrics[MetricAfterExcludedCompanies] = len(survivors)
	}

	ordered := orderByRecency(survivors)
	metrics[MetricOrderedCount] = len(ordered)

	capped := ordered
	if len(capped) > MaxAgentJobs {
		capped = capped[:MaxAgentJobs]
	}
	metrics[MetricCappedCount] = len(capped)

	return Result{
		Jobs:            capped,
		TotalConsidered: len(ordered),
		Metrics:         metrics,
	}
}

// matchesPrimary applies the exact-match predicates: work mode, employment
// type, location substring, and company size.
func matchesPrimary(job types.Job, prefs types.JobPreferences) bool {
	if job.WorkMode != prefs.WorkMode {
		return false
	}
	if job.EmploymentType != prefs.EmploymentType {
		return false
	}
	if !strings.Contains(strings.ToLower(job.Location), prefs.Location) {
		return false
	}
	return job.CompanySize == prefs.CompanySizePreference
}

// stipendOverlaps reports whether the job's stipend band overlaps the
// preferred band: a.max >= b.min && a.min <= b.max. Jobs without a band or
// with a different currency are excluded.
func stipendOverlaps(job types.Job, prefs types.JobPreferences) bool {
	if job.StipendMin == nil || job.StipendMax == nil {
		return false
	}
	if job.StipendCurrency != prefs.StipendCurrency {
		return false
	}
	return *job.StipendMax >= *prefs.StipendMin && *job.StipendMin <= *prefs.StipendMax
}

func containsAny(text string, needles []string) bool {
	lowered := strings.ToLower(text)
	for _, needle := range needles {
		if needle != "" && strings.Contains(lowered, needle) {
			return true
		}
	}
	return false
}

func keep(jobs []types.Job, pred func(types.Job) bool) []types.Job {
	out := jobs[:0:0]
	for _, job := range jobs {
		if pred(job) {
			out = append(out, job)
		}
	}
	return out
}

// orderByRecency sorts descending by publish date, then insertion time, then
// ascending by external job id as a stable tiebreaker. Returns a new slice.
func orderByRecency(jobs []types.Job) []types.Job {
	ordered := make([]types.Job, len(jobs))
	copy(ordered, jobs)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]
		if a.PublishedOrdinal() != b.PublishedOrdinal() {
			return a.PublishedOrdinal() > b.PublishedOrdinal()
		}
		if a.CreatedOrdinal() != b.CreatedOrdinal() {
			return a.CreatedOrdinal() > b.CreatedOrdinal()
		}
		return a.JobID < b.JobID
	})
	return ordered
}
