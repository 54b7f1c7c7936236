package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/match-engine/internal/types"
)

const jobColumns = `id, job_id, title, COALESCE(description, ''), COALESCE(description_html, ''),
	       company_name, COALESCE(company_url, ''), COALESCE(location, ''),
	       COALESCE(work_mode, ''), COALESCE(employment_type, ''),
	       COALESCE(experience_level, ''), COALESCE(work_type, ''), COALESCE(sector, ''),
	       COALESCE(company_size, ''), stipend_min, stipend_max,
	       COALESCE(stipend_currency, ''), internship_duration_weeks,
	       COALESCE(apply_url, ''), COALESCE(job_url, ''), published_at, created_at`

func scanJob(row pgx.Row) (types.Job, error) {
	var job types.Job
	err := row.Scan(&job.ID, &job.JobID, &job.Title, &job.Description, &job.DescriptionHTML,
		&job.CompanyName, &job.CompanyURL, &job.Location,
		&job.WorkMode, &job.EmploymentType,
		&job.ExperienceLevel, &job.WorkType, &job.Sector,
		&job.CompanySize, &job.StipendMin, &job.StipendMax,
		&job.StipendCurrency, &job.InternshipDurationWeeks,
		&job.ApplyURL, &job.JobURL, &job.PublishedAt, &job.CreatedAt)
	return job, err
}

// ListJobs retrieves the full job catalog in insertion order.
func (db *DB) ListJobs(ctx context.Context) ([]types.Job, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at, job_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetJob retrieves one job by its internal id.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpsertJobs loads a batch of postings into the catalog. Postings are keyed
// by the external job_id so re-loading a catalog file is idempotent.
// Returns the number of rows written.
func (db *DB) UpsertJobs(ctx context.Context, jobs []types.Job) (int, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, job := range jobs {
		_, err := tx.Exec(ctx,
			`INSERT INTO jobs
			   (job_id, title, description, description_html, company_name, company_url,
			    location, work_mode, employment_type, experience_level, work_type, sector,
			    company_size, stipend_min, stipend_max, stipend_currency,
			    internship_duration_weeks, apply_url, job_url, published_at)
			 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''),
			         NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
			         NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14, $15,
			         NULLIF($16, ''), $17, NULLIF($18, ''), NULLIF($19, ''), $20)
			 ON CONFLICT (job_id) DO UPDATE
			 SET title = EXCLUDED.title, description = EXCLUDED.description,
			     description_html = EXCLUDED.description_html,
			     company_name = EXCLUDED.company_name, company_url = EXCLUDED.company_url,
			     location = EXCLUDED.location, work_mode = EXCLUDED.work_mode,
			     employment_type = EXCLUDED.employment_type,
			     experience_level = EXCLUDED.experience_level,
			     work_type = EXCLUDED.work_type, sector = EXCLUDED.sector,
			     company_size = EXCLUDED.company_size,
			     stipend_min = EXCLUDED.stipend_min, stipend_max = EXCLUDED.stipend_max,
			     stipend_currency = EXCLUDED.stipend_currency,
			     internship_duration_weeks = EXCLUDED.internship_duration_weeks,
			     apply_url = EXCLUDED.apply_url, job_url = EXCLUDED.job_url,
			     published_at = EXCLUDED.published_at`,
			job.JobID, job.Title, job.Description, job.DescriptionHTML,
			job.CompanyName, job.CompanyURL, job.Location, job.WorkMode,
			job.EmploymentType, job.ExperienceLevel, job.WorkType, job.Sector,
			job.CompanySize, job.StipendMin, job.StipendMax, job.StipendCurrency,
			job.InternshipDurationWeeks, job.ApplyURL, job.JobURL, job.PublishedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert job %q: %w", job.JobID, err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit job upserts: %w", err)
	}
	return written, nil
}
