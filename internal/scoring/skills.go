// Package scoring computes the deterministic fit, quality, and selection
// scores used to rank filtered jobs before optional model refinement.
package scoring

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/match-engine/internal/scores"
	"github.com/jonathan/match-engine/internal/types"
)

// ExtractSkills flattens all skills from the résumé metadata into a set of
// lowercase strings. Categories count as skills too, so a résumé listing
// "Backend" with no items still matches backend-flavored postings.
func ExtractSkills(resume types.ResumeMetadata) map[string]bool {
	skills := make(map[string]bool)
	for _, group := range resume.Skills {
		for _, skill := range group.Skills {
			if trimmed := strings.ToLower(strings.TrimSpace(skill)); trimmed != "" {
				skills[trimmed] = true
			}
		}
		if category := strings.ToLower(strings.TrimSpace(group.Category)); category != "" {
			skills[category] = true
		}
	}
	return skills
}

// SkillMatch compares the user's skill set against a job's searchable text
// using keyword matching. Returns the matched fraction in [0,1] and the
// sorted matched skill names.
func SkillMatch(userSkills map[string]bool, job types.Job) (float64, []string) {
	if len(userSkills) == 0 {
		return 0.0, nil
	}

	var parts []string
	if job.Title != "" {
		parts = append(parts, job.Title)
	}
	if job.Description != "" {
		parts = append(parts, job.Description)
	}
	if job.WorkType != "" {
		parts = append(parts, job.WorkType)
	}
	if job.Sector != "" {
		parts = append(parts, job.Sector)
	}
	jobText := strings.ToLower(strings.Join(parts, " "))

	var matched []string
	for skill := range userSkills {
		// Very short skills ("go", "r") need word boundaries to avoid
		// matching inside unrelated words.
		if len(skill) <= 2 {
			pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(skill) + `\b`)
			if pattern.MatchString(jobText) {
				matched = append(matched, skill)
			}
		} else if strings.Contains(jobText, skill) {
			matched = append(matched, skill)
		}
	}
	sort.Strings(matched)

	return scores.Clamp(float64(len(matched)) / float64(len(userSkills))), matched
}
