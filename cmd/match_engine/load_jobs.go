package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/match-engine/internal/ingestion"
)

var loadJobsCmd = &cobra.Command{
	Use:   "load-jobs",
	Short: "Load a JSON job catalog into the database",
	Long:  "Load a JSON array of job postings into the catalog, cleaning HTML descriptions to plain text. Postings are keyed by job_id, so re-loading a file is idempotent.",
	RunE:  runLoadJobs,
}

var catalogFile string

func init() {
	loadJobsCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "Path to job catalog JSON file (required)")
	loadJobsCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(loadJobsCmd)
}

func runLoadJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	jobs, err := ingestion.ReadCatalog(catalogFile)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stdout, "Catalog is empty; nothing to load")
		return nil
	}

	store, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	written, err := store.UpsertJobs(ctx, jobs)
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Loaded %d jobs from %s\n", written, catalogFile)
	return nil
}
