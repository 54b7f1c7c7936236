package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPreferences_Normalized(t *testing.T) {
	prefs := JobPreferences{
		WorkMode:              WorkModeRemote,
		EmploymentType:        "FULL_TIME",
		Location:              "  Bangalore ",
		CompanySizePreference: "STARTUP",
		PreferredSectors:      []string{" FinTech ", "", "AI"},
		ExcludedKeywords:      []string{"Sales"},
	}

	normalized := prefs.Normalized()
	assert.Equal(t, "bangalore", normalized.Location)
	assert.Equal(t, "INR", normalized.StipendCurrency)
	assert.Equal(t, []string{"fintech", "ai"}, normalized.PreferredSectors)
	assert.Equal(t, []string{"sales"}, normalized.ExcludedKeywords)

	// Original is untouched
	assert.Equal(t, "  Bangalore ", prefs.Location)
}

func TestJobPreferences_Validate(t *testing.T) {
	valid := JobPreferences{
		WorkMode:              WorkModeRemote,
		EmploymentType:        "FULL_TIME",
		Location:              "bangalore",
		CompanySizePreference: "STARTUP",
	}
	require.NoError(t, valid.Validate())

	missing := JobPreferences{WorkMode: WorkModeRemote}
	assert.Error(t, missing.Validate())
}

func TestRecruiterRules_Validate(t *testing.T) {
	valid := RecruiterRules{
		CollegeTiers:       []string{TierOne, TierTwo},
		MinExperienceYears: 0,
		MaxExperienceYears: 2,
		NumberOfOpenings:   3,
		PlatformRules: []PlatformRule{
			{Platform: "codeforces", Metric: "rating", Operator: OperatorGTE, Value: 1600},
		},
	}
	require.NoError(t, valid.Validate())

	badOperator := valid
	badOperator.PlatformRules = []PlatformRule{
		{Platform: "codeforces", Metric: "rating", Operator: "gt", Value: 1600},
	}
	assert.Error(t, badOperator.Validate())

	badRange := valid
	badRange.MinExperienceYears = 5
	badRange.MaxExperienceYears = 2
	assert.Error(t, badRange.Validate())

	badTier := valid
	badTier.CollegeTiers = []string{"TIER_9"}
	assert.Error(t, badTier.Validate())
}

func TestRecruiterRules_AllowsTier(t *testing.T) {
	rules := RecruiterRules{CollegeTiers: []string{TierOne, TierTwo}}
	assert.True(t, rules.AllowsTier(TierOne))
	assert.False(t, rules.AllowsTier(TierThree))
	assert.False(t, rules.AllowsTier(TierUnknown))
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusFailed))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusFiltering))
	assert.False(t, IsTerminalStatus(StatusAgentRunning))
}
