package filtering

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/match-engine/internal/types"
)

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func basePrefs() types.JobPreferences {
	return types.JobPreferences{
		WorkMode:              types.WorkModeRemote,
		EmploymentType:        "FULL_TIME",
		Location:              "bangalore",
		CompanySizePreference: "STARTUP",
		StipendCurrency:       "INR",
	}
}

func baseJob(jobID string) types.Job {
	return types.Job{
		JobID:           jobID,
		Title:           "Backend Engineer",
		CompanyName:     "Acme",
		Location:        "Bangalore, India",
		WorkMode:        types.WorkModeRemote,
		EmploymentType:  "FULL_TIME",
		CompanySize:     "STARTUP",
		StipendCurrency: "INR",
		CreatedAt:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFilterJobs_PrimaryPredicates(t *testing.T) {
	prefs := basePrefs()

	matching := baseJob("j1")
	wrongMode := baseJob("j2")
	wrongMode.WorkMode = types.WorkModeOnsite
	wrongLocation := baseJob("j3")
	wrongLocation.Location = "Pune"

	result := FilterJobs([]types.Job{matching, wrongMode, wrongLocation}, prefs)

	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "j1", result.Jobs[0].JobID)
	assert.Equal(t, 3, result.Metrics[MetricInitialCount])
	assert.Equal(t, 1, result.Metrics[MetricAfterPrimaryFilters])
	assert.Equal(t, 1, result.TotalConsidered)
}

func TestFilterJobs_StipendOverlap(t *testing.T) {
	prefs := basePrefs()
	prefs.StipendMin = intPtr(10000)
	prefs.StipendMax = intPtr(20000)

	cases := []struct {
		name     string
		min, max int
		want     bool
	}{
		{"overlap_inside", 12000, 18000, true},
		{"overlap_left_edge", 5000, 10000, true},
		{"overlap_right_edge", 20000, 30000, true},
		{"below_range", 1000, 9999, false},
		{"above_range", 20001, 40000, false},
		{"contains_range", 5000, 50000, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := baseJob("j1")
			job.StipendMin = intPtr(tc.min)
			job.StipendMax = intPtr(tc.max)

			result := FilterJobs([]types.Job{job}, prefs)
			if tc.want {
				assert.Len(t, result.Jobs, 1)
			} else {
				assert.Empty(t, result.Jobs)
			}
		})
	}
}

func TestFilterJobs_StipendRequiresBandAndCurrency(t *testing.T) {
	prefs := basePrefs()
	prefs.StipendMin = intPtr(10000)
	prefs.StipendMax = intPtr(20000)

	noBand := baseJob("j1")

	wrongCurrency := baseJob("j2")
	wrongCurrency.StipendMin = intPtr(12000)
	wrongCurrency.StipendMax = intPtr(18000)
	wrongCurrency.StipendCurrency = "USD"

	result := FilterJobs([]types.Job{noBand, wrongCurrency}, prefs)
	assert.Empty(t, result.Jobs)
	assert.Equal(t, 0, result.Metrics[MetricAfterStipendOverlap])
}

func TestFilterJobs_InternshipDuration(t *testing.T) {
	prefs := basePrefs()
	prefs.EmploymentType = types.EmploymentTypeInternship
	prefs.InternshipDurationWeeks = intPtr(12)

	match := baseJob("j1")
	match.EmploymentType = types.EmploymentTypeInternship
	match.InternshipDurationWeeks = intPtr(12)

	mismatch := baseJob("j2")
	mismatch.EmploymentType = types.EmploymentTypeInternship
	mismatch.InternshipDurationWeeks = intPtr(8)

	result := FilterJobs([]types.Job{match, mismatch}, prefs)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "j1", result.Jobs[0].JobID)
	assert.Equal(t, 1, result.Metrics[MetricAfterInternshipWeeks])
}

func TestFilterJobs_ExclusionsAndSectors(t *testing.T) {
	prefs := basePrefs()
	prefs.ExcludedSectors = []string{"gambling"}
	prefs.PreferredSectors = []string{"fintech"}
	prefs.ExcludedKeywords = []string{"sales"}
	prefs.ExcludedCompanies = []string{"evil corp"}

	good := baseJob("j1")
	good.Sector = "FinTech"

	badSector := baseJob("j2")
	badSector.Sector = "Online Gambling"

	offSector := baseJob("j3")
	offSector.Sector = "Logistics"

	badTitle := baseJob("j4")
	badTitle.Sector = "FinTech"
	badTitle.Title = "Sales Engineer"

	badCompany := baseJob("j5")
	badCompany.Sector = "FinTech"
	badCompany.CompanyName = "Evil Corp Ltd"

	result := FilterJobs([]types.Job{good, badSector, offSector, badTitle, badCompany}, prefs)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "j1", result.Jobs[0].JobID)
	assert.Equal(t, 4, result.Metrics[MetricAfterExcludedSectors])
	assert.Equal(t, 3, result.Metrics[MetricAfterPreferredSectors])
	assert.Equal(t, 2, result.Metrics[MetricAfterExcludedKeywords])
	assert.Equal(t, 1, result.Metrics[MetricAfterExcludedCompanies])
}

func TestFilterJobs_OrderingAndCap(t *testing.T) {
	prefs := basePrefs()

	jobs := make([]types.Job, 0, MaxAgentJobs+10)
	for i := 0; i < MaxAgentJobs+10; i++ {
		job := baseJob(fmt.Sprintf("j%04d", i))
		job.PublishedAt = timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i))
		jobs = append(jobs, job)
	}

	result := FilterJobs(jobs, prefs)
	assert.Len(t, result.Jobs, MaxAgentJobs)
	assert.Equal(t, MaxAgentJobs+10, result.TotalConsidered)
	assert.Equal(t, MaxAgentJobs, result.Metrics[MetricCappedCount])
	assert.Equal(t, MaxAgentJobs+10, result.Metrics[MetricOrderedCount])

	// Most recently published first
	assert.Equal(t, "j0309", result.Jobs[0].JobID)
}

func TestFilterJobs_StableTiebreakByJobID(t *testing.T) {
	prefs := basePrefs()

	published := timePtr(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	b := baseJob("b")
	b.PublishedAt = published
	a := baseJob("a")
	a.PublishedAt = published

	result := FilterJobs([]types.Job{b, a}, prefs)
	require.Len(t, result.Jobs, 2)
	assert.Equal(t, "a", result.Jobs[0].JobID)
	assert.Equal(t, "b", result.Jobs[1].JobID)
}

func TestFilterJobs_EmptyInput(t *testing.T) {
	result := FilterJobs(nil, basePrefs())
	assert.Empty(t, result.Jobs)
	assert.Equal(t, 0, result.TotalConsidered)
	assert.Equal(t, 0, result.Metrics[MetricInitialCount])
}

func TestFilterJobs_InputNotMutated(t *testing.T) {
	prefs := basePrefs()

	first := baseJob("j2")
	first.PublishedAt = timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	second := baseJob("j1")
	second.PublishedAt = timePtr(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	input := []types.Job{first, second}

	_ = FilterJobs(input, prefs)
	assert.Equal(t, "j2", input[0].JobID)
	assert.Equal(t, "j1", input[1].JobID)
}
