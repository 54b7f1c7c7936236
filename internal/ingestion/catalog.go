package ingestion

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/match-engine/internal/types"
)

// ReadCatalog loads a JSON job catalog file.
func ReadCatalog(path string) ([]types.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a JSON array of job postings, validates the
// identity fields, and derives the plain-text description from
// description_html when the posting only carries HTML.
func ParseCatalog(data []byte) ([]types.Job, error) {
	var jobs []types.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	seen := make(map[string]bool, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if job.JobID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing job_id", i)
		}
		if job.Title == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): missing title", i, job.JobID)
		}
		if job.CompanyName == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): missing company_name", i, job.JobID)
		}
		if seen[job.JobID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate job_id %q", i, job.JobID)
		}
		seen[job.JobID] = true

		if job.Description == "" && job.DescriptionHTML != "" {
			text, err := CleanJobDescription(job.DescriptionHTML)
			if err != nil {
				return nil, fmt.Errorf("catalog entry %d (%s): %w", i, job.JobID, err)
			}
			job.Description = text
		}
	}
	return jobs, nil
}
