// Package agents implements the six-stage candidate-ranking pipeline. Each
// stage is a pure function of its declared inputs; the retry envelope in
// retry.go owns attempts, tracing, and fallbacks.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/match-engine/internal/llm"
	"github.com/jonathan/match-engine/internal/prompts"
	"github.com/jonathan/match-engine/internal/schemas"
	"github.com/jonathan/match-engine/internal/scores"
	"github.com/jonathan/match-engine/internal/types"
)

// Stage identifiers, in execution order.
const (
	StageNormalize   = "A"
	StageClassify    = "B"
	StageExperience  = "C"
	StageCodingRules = "D"
	StageHardFilter  = "E"
	StageFitScore    = "F"
)

// Agent names recorded on trace events.
const (
	AgentNormalizer     = "CandidateNormalizerAgent"
	AgentTierClassifier = "CollegeTierClassifierAgent"
	AgentExperience     = "ExperienceExtractionAgent"
	AgentCodingSignals  = "CodingProfileSignalAgent"
	AgentHardFilter     = "HardFilterAgent"
	AgentFitScoring     = "FitScoringAgent"
)

// NormalizedCandidate is stage A's output: the résumé split into the text
// sections the later stages consume.
type NormalizedCandidate struct {
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	EducationText  string              `json:"education_text"`
	ExperienceText string              `json:"experience_text"`
	ProjectsText   string              `json:"projects_text"`
	SkillsText     string              `json:"skills_text"`
	RawSections    map[string][]string `json:"raw_sections,omitempty"`
}

// resumeSections is the raw résumé JSON shape produced upstream.
type resumeSections struct {
	Sections map[string][]string `json:"sections"`
}

// NormalizeCandidate extracts the text sections from the candidate's raw
// résumé JSON. Unparseable résumé data yields empty sections rather than a
// stage failure, matching the conservative fallback shape.
func NormalizeCandidate(candidate types.Candidate) NormalizedCandidate {
	var parsed resumeSections
	_ = json.Unmarshal([]byte(candidate.ResumeData), &parsed)

	sections := parsed.Sections
	if sections == nil {
		sections = map[string][]string{}
	}
	return NormalizedCandidate{
		Name:           candidate.Name,
		Email:          candidate.Email,
		EducationText:  strings.Join(sections["Education"], "\n"),
		ExperienceText: strings.Join(sections["Experience"], "\n"),
		ProjectsText:   strings.Join(sections["Projects"], "\n"),
		SkillsText:     strings.Join(sections["Technical Skills"], "\n"),
		RawSections:    sections,
	}
}

// normalizeFallback is stage A's conservative output.
func normalizeFallback(candidate types.Candidate) NormalizedCandidate {
	return NormalizedCandidate{
		Name:        candidate.Name,
		Email:       candidate.Email,
		RawSections: map[string][]string{},
	}
}

// TierClassification is stage B's output.
type TierClassification struct {
	Tier       string   `json:"college_tier"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
	CacheHit   bool     `json:"cache_hit"`
	ModelName  string   `json:"model_name,omitempty"`
}

// tierFallback is stage B's conservative output.
func tierFallback() TierClassification {
	return TierClassification{
		Tier:     types.TierUnknown,
		Evidence: []string{"stage_fallback"},
	}
}

// TierCache is the memoized institution-classification collaborator. The
// check-then-write is safe under races because re-classifying the same key
// is idempotent.
type TierCache interface {
	GetTier(ctx context.Context, institutionKey string) (*types.TierCacheEntry, error)
	UpsertTier(ctx context.Context, entry types.TierCacheEntry) error
}

// tierSchema constrains the classification payload returned by the model.
const tierSchema = `{
	"type": "object",
	"required": ["college_tier", "confidence"],
	"properties": {
		"college_tier": {"type": "string"},
		"confidence": {"type": "number"},
		"evidence": {"type": "array", "items": {"type": "string"}}
	}
}`

// maxInstitutionKeyLength bounds the cache key.
const maxInstitutionKeyLength = 255

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeInstitutionKey collapses whitespace and lowercases the education
// text to form the tier cache key.
func NormalizeInstitutionKey(educationText string) string {
	key := whitespacePattern.ReplaceAllString(strings.TrimSpace(strings.ToLower(educationText)), " ")
	if len(key) > maxInstitutionKeyLength {
		key = key[:maxInstitutionKeyLength]
	}
	return key
}

// TierClassifier maps education text to a college tier, consulting the
// cache before the model. Model violations degrade to UNKNOWN inside the
// stage; only collaborator failures surface as stage errors.
type TierClassifier struct {
	client llm.Client
	cache  TierCache
}

// NewTierClassifier creates a classifier over the given collaborators.
func NewTierClassifier(client llm.Client, cache TierCache) *TierClassifier {
	return &TierClassifier{client: client, cache: cache}
}

// Classify runs stage B for one normalized candidate.
func (t *TierClassifier) Classify(ctx context.Context, normalized NormalizedCandidate) (TierClassification, error) {
	key := NormalizeInstitutionKey(normalized.EducationText)

	if key != "" && t.cache != nil {
		cached, err := t.cache.GetTier(ctx, key)
		if err != nil {
			return TierClassification{}, fmt.Errorf("failed to read tier cache: %w", err)
		}
		if cached != nil {
			return TierClassification{
				Tier:       cached.Tier,
				Confidence: cached.Confidence,
				Evidence:   cached.Evidence,
				CacheHit:   true,
				ModelName:  cached.SourceModel,
			}, nil
		}
	}

	if normalized.EducationText == "" {
		return TierClassification{
			Tier:     types.TierUnknown,
			Evidence: []string{"No education data"},
		}, nil
	}

	classification := t.classifyWithModel(ctx, normalized.EducationText)

	// Fresh, non-fallback classifications are memoized; UNKNOWN is never
	// written so a later run can try again.
	if key != "" && classification.Tier != types.TierUnknown && t.cache != nil {
		entry := types.TierCacheEntry{
			InstitutionNormalized: key,
			Tier:                  classification.Tier,
			Confidence:            scores.Clamp(classification.Confidence),
			Evidence:              classification.Evidence,
			SourceModel:           classification.ModelName,
		}
		if err := t.cache.UpsertTier(ctx, entry); err != nil {
			return TierClassification{}, fmt.Errorf("failed to write tier cache: %w", err)
		}
	}

	return classification, nil
}

// classifyWithModel invokes the model and validates the payload. Any
// violation degrades to an UNKNOWN classification.
func (t *TierClassifier) classifyWithModel(ctx context.Context, educationText string) TierClassification {
	unknown := TierClassification{
		Tier:     types.TierUnknown,
		Evidence: []string{"fallback_used"},
	}
	if t.client == nil {
		return unknown
	}
	unknown.ModelName = t.client.GetModel(llm.TierLite)

	prompt := prompts.Format(prompts.MustGet("classification.json", "classify-college-tier"), map[string]string{
		"EducationText": educationText,
	})
	raw, err := t.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return unknown
	}

	payload := llm.ExtractJSONObject(raw)
	if payload == "" {
		return unknown
	}
	if err := schemas.ValidateJSONString(tierSchema, payload); err != nil {
		return unknown
	}

	var parsed struct {
		Tier       string   `json:"college_tier"`
		Confidence float64  `json:"confidence"`
		Evidence   []string `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return unknown
	}

	tier := strings.ToUpper(strings.TrimSpace(parsed.Tier))
	if !types.ValidTier(tier) {
		tier = types.TierUnknown
	}
	return TierClassification{
		Tier:       tier,
		Confidence: parsed.Confidence,
		Evidence:   parsed.Evidence,
		ModelName:  t.client.GetModel(llm.TierLite),
	}
}

// ExperienceEstimate is stage C's output.
type ExperienceEstimate struct {
	Years      float64  `json:"years_of_experience"`
	Band       string   `json:"experience_band"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

var experiencePattern = regexp.MustCompile(`(\d+)\s*\+?\s*(?:years|yrs|year|yr)`)

// ExtractExperience derives a years-of-experience estimate from the
// experience text. The largest mention wins; no mention means zero years
// with low confidence.
func ExtractExperience(normalized NormalizedCandidate) ExperienceEstimate {
	years := 0
	for _, match := range experiencePattern.FindAllStringSubmatch(strings.ToLower(normalized.ExperienceText), -1) {
		var n int
		if _, err := fmt.Sscanf(match[1], "%d", &n); err == nil && n > years {
			years = n
		}
	}

	estimate := ExperienceEstimate{
		Years:      float64(years),
		Band:       "0 years",
		Confidence: 0.2,
		Evidence:   []string{"regex_extraction"},
	}
	if years > 0 {
		estimate.Band = fmt.Sprintf("%d+ years", years)
		estimate.Confidence = 0.5
	}
	return estimate
}

// experienceFallback is stage C's conservative output.
func experienceFallback() ExperienceEstimate {
	return ExperienceEstimate{
		Band:     "0 years",
		Evidence: []string{"stage_fallback"},
	}
}

// PlatformSignal is one coding-platform metric found in the résumé text.
type PlatformSignal struct {
	Platform string  `json:"platform"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
}

// RuleComparison is the evaluation of one recruiter rule against the
// extracted signals.
type RuleComparison struct {
	Rule       types.PlatformRule `json:"rule"`
	Matched    bool               `json:"matched"`
	Reason     string             `json:"reason,omitempty"`
	FoundValue *float64           `json:"found_value,omitempty"`
}

// CodingSignals is stage D's output.
type CodingSignals struct {
	Signals     []PlatformSignal `json:"extracted_platform_signals"`
	Comparisons []RuleComparison `json:"criteria_comparisons"`
}

var (
	codeforcesPattern = regexp.MustCompile(`codeforces[^\d]*(\d{3,5})`)
	leetcodePattern   = regexp.MustCompile(`leetcode[^\d]*(\d{1,7})`)
)

// ExtractCodingSignals finds coding-platform metrics in the résumé text and
// evaluates each recruiter rule against them.
func ExtractCodingSignals(normalized NormalizedCandidate, rules []types.PlatformRule) CodingSignals {
	text := strings.ToLower(strings.Join([]string{
		normalized.SkillsText,
		normalized.ProjectsText,
		normalized.ExperienceText,
	}, " "))

	var signals []PlatformSignal
	if match := codeforcesPattern.FindStringSubmatch(text); match != nil {
		signals = append(signals, PlatformSignal{Platform: "codeforces", Metric: "rating", Value: parseNumber(match[1])})
	}
	if match := leetcodePattern.FindStringSubmatch(text); match != nil {
		signals = append(signals, PlatformSignal{Platform: "leetcode", Metric: "contest_rank", Value: parseNumber(match[1])})
	}

	comparisons := make([]RuleComparison, 0, len(rules))
	for _, rule := range rules {
		platform := strings.ToLower(strings.TrimSpace(rule.Platform))
		metric := strings.ToLower(strings.TrimSpace(rule.Metric))

		var found *PlatformSignal
		for i := range signals {
			if signals[i].Platform == platform && signals[i].Metric == metric {
				found = &signals[i]
				break
			}
		}
		if found == nil {
			comparisons = append(comparisons, RuleComparison{Rule: rule, Reason: "signal_not_found"})
			continue
		}

		value := found.Value
		matched := false
		switch strings.ToLower(strings.TrimSpace(rule.Operator)) {
		case types.OperatorGTE:
			matched = value >= rule.Value
		case types.OperatorLTE:
			matched = value <= rule.Value
		case types.OperatorEQ:
			matched = value == rule.Value
		}
		comparisons = append(comparisons, RuleComparison{Rule: rule, Matched: matched, FoundValue: &value})
	}

	return CodingSignals{Signals: signals, Comparisons: comparisons}
}

func parseNumber(digits string) float64 {
	var n int
	_, _ = fmt.Sscanf(digits, "%d", &n)
	return float64(n)
}

// codingFallback is stage D's conservative output.
func codingFallback() CodingSignals {
	return CodingSignals{}
}

// HardFilterResult is stage E's output.
type HardFilterResult struct {
	Passes  bool     `json:"passes_hard_filter"`
	Reasons []string `json:"rejected_reasons"`
}

// EvaluateHardFilter gates the candidate on tier membership, the experience
// band, and all recruiter platform rules passing.
func EvaluateHardFilter(rules types.RecruiterRules, tier TierClassification, experience ExperienceEstimate, coding CodingSignals) HardFilterResult {
	result := HardFilterResult{Passes: true}

	if !rules.AllowsTier(tier.Tier) {
		result.Passes = false
		result.Reasons = append(result.Reasons, fmt.Sprintf("College tier mismatch: %s", tier.Tier))
	}
	if experience.Years < rules.MinExperienceYears || experience.Years > rules.MaxExperienceYears {
		result.Passes = false
		result.Reasons = append(result.Reasons, "Experience outside preferred range")
	}
	for _, comparison := range coding.Comparisons {
		if !comparison.Matched {
			result.Passes = false
			result.Reasons = append(result.Reasons, "Coding criteria mismatch")
			break
		}
	}
	return result
}

// hardFilterFallback is stage E's conservative output: reject.
func hardFilterFallback() HardFilterResult {
	return HardFilterResult{Reasons: []string{"hard_filter_fallback"}}
}

// FitScore is stage F's output.
type FitScore struct {
	Sub     types.SubScores `json:"sub_scores"`
	Final   float64         `json:"final_score"`
	Summary string          `json:"summary"`
}

// defaultCodingFit applies when the recruiter supplied no platform rules.
const defaultCodingFit = 70

// jdTokenLimit bounds the job-description tokens considered for relevance.
const jdTokenLimit = 40

// ScoreCandidateFit computes the weighted composite candidate fit. A failed
// hard filter short-circuits to the all-zero rejected shape.
func ScoreCandidateFit(normalized NormalizedCandidate, hard HardFilterResult, tier TierClassification, experience ExperienceEstimate, coding CodingSignals, rules types.RecruiterRules, weights scores.CandidateFitWeights) FitScore {
	if !hard.Passes {
		return FitScore{Summary: "Rejected by hard filters"}
	}
	if weights == (scores.CandidateFitWeights{}) {
		weights = scores.DefaultCandidateFitWeights()
	}

	educationFit := 0
	if rules.AllowsTier(tier.Tier) {
		educationFit = 100
	}

	experienceFit := 0
	if experience.Years >= rules.MinExperienceYears && experience.Years <= rules.MaxExperienceYears {
		experienceFit = 100
	}

	codingFit := defaultCodingFit
	if len(coding.Comparisons) > 0 {
		matched := 0
		for _, comparison := range coding.Comparisons {
			if comparison.Matched {
				matched++
			}
		}
		codingFit = 100 * matched / len(coding.Comparisons)
	}

	jdRelevance := scoreJDRelevance(rules.JobDescription, normalized)

	final := scores.Round2(
		weights.Education*float64(educationFit) +
			weights.Experience*float64(experienceFit) +
			weights.Coding*float64(codingFit) +
			weights.JDRelevance*float64(jdRelevance),
	)
	return FitScore{
		Sub: types.SubScores{
			EducationFit:  educationFit,
			ExperienceFit: experienceFit,
			CodingFit:     codingFit,
			JDRelevance:   jdRelevance,
		},
		Final:   final,
		Summary: "Composite candidate fit score",
	}
}

// scoreJDRelevance counts job-description keywords found in the candidate's
// skills and projects text. Only the first jdTokenLimit unique tokens longer
// than three characters count; each hit is worth five points, capped at 100.
func scoreJDRelevance(jobDescription string, normalized NormalizedCandidate) int {
	tokens := strings.Fields(strings.ToLower(jobDescription))
	if len(tokens) > jdTokenLimit {
		tokens = tokens[:jdTokenLimit]
	}
	profileText := strings.ToLower(normalized.SkillsText + " " + normalized.ProjectsText)

	seen := make(map[string]bool)
	hits := 0
	for _, token := range tokens {
		if len(token) <= 3 || seen[token] {
			continue
		}
		seen[token] = true
		if strings.Contains(profileText, token) {
			hits++
		}
	}
	if hits*5 > 100 {
		return 100
	}
	return hits * 5
}

// fitFallback is stage F's conservative output.
func fitFallback() FitScore {
	return FitScore{Summary: "fit_scoring_fallback"}
}
