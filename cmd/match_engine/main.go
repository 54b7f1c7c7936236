// Package main provides the entry point for the match engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "match_engine",
	Short: "Job matching and candidate ranking pipeline",
	Long:  "Match Engine ranks jobs for seekers and candidates for recruiters by blending deterministic filtering and heuristic scoring with budget-limited model calls.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
