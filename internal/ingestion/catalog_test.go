package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `[
	{
		"job_id": "ext-1",
		"title": "Backend Engineer",
		"company_name": "Acme",
		"work_mode": "REMOTE",
		"employment_type": "FULL_TIME",
		"description_html": "<p>Build services</p><ul><li>Go</li></ul>"
	},
	{
		"job_id": "ext-2",
		"title": "Platform Intern",
		"company_name": "Beta",
		"employment_type": "INTERNSHIP",
		"internship_duration_weeks": 12,
		"description": "Already plain text"
	}
]`

func TestParseCatalog(t *testing.T) {
	jobs, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "ext-1", jobs[0].JobID)
	assert.Contains(t, jobs[0].Description, "Build services")
	assert.Contains(t, jobs[0].Description, "- Go")

	// a plain-text description is left untouched
	assert.Equal(t, "Already plain text", jobs[1].Description)
	require.NotNil(t, jobs[1].InternshipDurationWeeks)
	assert.Equal(t, 12, *jobs[1].InternshipDurationWeeks)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"not json", `{broken`, "failed to parse catalog JSON"},
		{"missing job id", `[{"title": "x", "company_name": "y"}]`, "missing job_id"},
		{"missing title", `[{"job_id": "a", "company_name": "y"}]`, "missing title"},
		{"missing company", `[{"job_id": "a", "title": "x"}]`, "missing company_name"},
		{"duplicate job id", `[
			{"job_id": "a", "title": "x", "company_name": "y"},
			{"job_id": "a", "title": "x2", "company_name": "y2"}
		]`, `duplicate job_id "a"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.payload))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestReadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0644))

	jobs, err := ReadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = ReadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog file not found")
}
