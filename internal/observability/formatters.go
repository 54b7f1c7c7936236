// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/match-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintMatchingRun outputs a matching run's lifecycle summary.
func (p *Printer) PrintMatchingRun(run *types.MatchingRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("Jobs:     %d passed the filter\n", run.FilteredJobsCount))
	if run.ErrorCode != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", run.ErrorCode))
		sb.WriteString(fmt.Sprintf("          %s\n", run.ErrorMessage))
	}
	sb.WriteString(timingLines(run.TimingMetrics))

	p.printBox("MATCHING RUN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchResults outputs the ranked job matches.
func (p *Printer) PrintMatchResults(results []types.MatchResult) {
	if len(results) == 0 {
		p.printBox("JOB MATCHES", "No matching jobs found")
		return
	}

	var sb strings.Builder
	count := min(len(results), maxItemsToShow)
	for i := 0; i < count; i++ {
		result := results[i]
		sb.WriteString(fmt.Sprintf("#%d  job %s\n", result.Rank, result.JobID))
		sb.WriteString(fmt.Sprintf("    Selection: %.2f  Fit: %.2f  Quality: %.2f\n",
			result.SelectionProbability, result.FitScore, result.JobQualityScore))
		why := result.Why
		if len(why) > 48 {
			why = why[:45] + "..."
		}
		sb.WriteString(fmt.Sprintf("    %s\n", why))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more matches", len(results)-maxItemsToShow))
	}

	p.printBox("JOB MATCHES", sb.String())
}

// PrintRankingRun outputs a candidate-ranking run's lifecycle summary.
func (p *Printer) PrintRankingRun(run *types.RankingRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", run.Status))
	if run.ModelName != "" {
		sb.WriteString(fmt.Sprintf("Model:      %s\n", run.ModelName))
	}
	sb.WriteString(fmt.Sprintf("Candidates: %d/%d processed, %d shortlisted\n",
		run.ProcessedCandidates, run.TotalCandidates, run.ShortlistedCount))
	if run.ErrorCode != "" {
		sb.WriteString(fmt.Sprintf("Error:      %s\n", run.ErrorCode))
		sb.WriteString(fmt.Sprintf("            %s\n", run.ErrorMessage))
	}
	sb.WriteString(timingLines(run.TimingMetrics))

	p.printBox("CANDIDATE RANKING RUN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRankingResults outputs the ranked candidates with shortlist markers.
func (p *Printer) PrintRankingResults(results []types.RankingResult) {
	if len(results) == 0 {
		p.printBox("RANKED CANDIDATES", "No candidates ranked")
		return
	}

	var sb strings.Builder
	count := min(len(results), maxItemsToShow)
	for i := 0; i < count; i++ {
		result := results[i]
		marker := " "
		if result.IsShortlisted {
			marker = "★"
		}
		sb.WriteString(fmt.Sprintf("%s #%d  %s  score %.2f\n", marker, result.Rank, result.CandidateID, result.FinalScore))
		if !result.PassesHardFilter {
			reasons := strings.Join(result.FilterReasons, "; ")
			if len(reasons) > 44 {
				reasons = reasons[:41] + "..."
			}
			sb.WriteString(fmt.Sprintf("    rejected: %s\n", reasons))
			continue
		}
		sb.WriteString(fmt.Sprintf("    edu %d  exp %d  coding %d  jd %d\n",
			result.SubScores.EducationFit, result.SubScores.ExperienceFit,
			result.SubScores.CodingFit, result.SubScores.JDRelevance))
	}
	if len(results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(results)-maxItemsToShow))
	}

	p.printBox("RANKED CANDIDATES", sb.String())
}

// PrintFilterMetrics outputs the deterministic filter's per-predicate
// survivor counts.
func (p *Printer) PrintFilterMetrics(metrics map[string]int) {
	if len(metrics) == 0 {
		return
	}

	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, key := range keys {
		sb.WriteString(fmt.Sprintf("%-30s %d", key, metrics[key]))
		if i < len(keys)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("FILTER SURVIVORS", sb.String())
}

// timingLines renders a timing metrics map with scalar values first,
// sorted for stable output. Nested metric maps are summarized by key only.
func timingLines(timing map[string]any) string {
	if len(timing) == 0 {
		return ""
	}

	keys := make([]string, 0, len(timing))
	for key := range timing {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("\nTiming:\n")
	for _, key := range keys {
		switch value := timing[key].(type) {
		case int64:
			sb.WriteString(fmt.Sprintf("  %-24s %d ms\n", key, value))
		case int:
			sb.WriteString(fmt.Sprintf("  %-24s %d ms\n", key, value))
		case float64:
			sb.WriteString(fmt.Sprintf("  %-24s %.0f ms\n", key, value))
		default:
			sb.WriteString(fmt.Sprintf("  %-24s (detail)\n", key))
		}
	}
	return sb.String()
}
