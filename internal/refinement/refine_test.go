package refinement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/match-engine/internal/llm"
	"github.com/jonathan/match-engine/internal/scoring"
	"github.com/jonathan/match-engine/internal/types"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

const validPayload = `{
	"role_fit": 0.8,
	"skill_alignment": 0.9,
	"career_trajectory": 0.7,
	"culture_signals": 0.6,
	"overall_score": 0.8,
	"reasoning": "strong backend overlap"
}`

func makeItems(n int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, Item{
			Job:       types.Job{JobID: "j1", Title: "Backend Engineer"},
			Heuristic: scoring.JobScore{Selection: 0.5, Fit: 0.6, Quality: 0.8},
		})
	}
	return items
}

func TestRefine_BlendsModelScore(t *testing.T) {
	client := &fakeClient{response: validPayload}
	r := NewRefiner(client, DefaultConfig(), nil)

	outcomes, metrics := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(1))
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Refined)
	require.NotNil(t, outcomes[0].Model)

	// 0.40*0.5 + 0.60*0.8
	assert.InDelta(t, 0.68, outcomes[0].BlendedSelection, 1e-9)
	assert.Equal(t, "strong backend overlap", outcomes[0].Model.Reasoning)
	assert.Equal(t, 1, metrics.Refined)
	assert.Equal(t, 1, metrics.Attempted)
}

func TestRefine_Disabled(t *testing.T) {
	client := &fakeClient{response: validPayload}
	cfg := DefaultConfig()
	cfg.Enabled = false
	r := NewRefiner(client, cfg, nil)

	outcomes, metrics := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(2))
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Refined)
		assert.Equal(t, ReasonDisabled, o.Reason)
		assert.Equal(t, 0.5, o.BlendedSelection) // heuristic untouched
	}
	assert.Zero(t, metrics.Attempted)
	assert.Zero(t, client.calls)
}

func TestRefine_ZeroBudgetMarksEverythingExceeded(t *testing.T) {
	client := &fakeClient{response: validPayload}
	cfg := DefaultConfig()
	cfg.Budget = 0
	r := NewRefiner(client, cfg, nil)

	outcomes, metrics := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(3))
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.False(t, o.Refined)
		assert.Equal(t, ReasonBudgetExceeded, o.Reason)
		assert.Equal(t, 0.5, o.BlendedSelection)
	}
	assert.Equal(t, 3, metrics.BudgetExceeded)
	assert.Zero(t, client.calls)
}

func TestRefine_BudgetCheckedBetweenCallsOnly(t *testing.T) {
	client := &fakeClient{response: validPayload}
	cfg := DefaultConfig()
	cfg.Budget = 100 * time.Millisecond
	r := NewRefiner(client, cfg, nil)

	// Each call advances the fake clock past the budget, so only the first
	// item gets a model call.
	current := time.Unix(0, 0)
	r.now = func() time.Time {
		current = current.Add(60 * time.Millisecond)
		return current
	}

	outcomes, metrics := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(3))
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Refined)
	assert.Equal(t, ReasonBudgetExceeded, outcomes[1].Reason)
	assert.Equal(t, ReasonBudgetExceeded, outcomes[2].Reason)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, metrics.Refined)
	assert.Equal(t, 2, metrics.BudgetExceeded)
}

func TestRefine_ModelErrorKeepsHeuristic(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	r := NewRefiner(client, DefaultConfig(), nil)

	outcomes, metrics := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(1))
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Refined)
	assert.Equal(t, ReasonModelError, outcomes[0].Reason)
	assert.Equal(t, 0.5, outcomes[0].BlendedSelection)
	assert.Equal(t, 1, metrics.Errors)
}

func TestRefine_InvalidPayloadRejected(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not_json", "model declined to answer"},
		{"missing_fields", `{"overall_score": 0.9}`},
		{"out_of_range", `{"role_fit": 2.0, "skill_alignment": 0.9, "career_trajectory": 0.7, "culture_signals": 0.6, "overall_score": 0.8, "reasoning": "x"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{response: tc.response}
			r := NewRefiner(client, DefaultConfig(), nil)

			outcomes, _ := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(1))
			require.Len(t, outcomes, 1)
			assert.False(t, outcomes[0].Refined)
			assert.Equal(t, ReasonInvalidPayload, outcomes[0].Reason)
			assert.Equal(t, 0.5, outcomes[0].BlendedSelection)
		})
	}
}

func TestRefine_TopNLimit(t *testing.T) {
	client := &fakeClient{response: validPayload}
	cfg := DefaultConfig()
	cfg.TopN = 2
	r := NewRefiner(client, cfg, nil)

	outcomes, metrics := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(4))
	require.Len(t, outcomes, 4)
	assert.True(t, outcomes[0].Refined)
	assert.True(t, outcomes[1].Refined)
	assert.Equal(t, ReasonOutsideTopN, outcomes[2].Reason)
	assert.Equal(t, ReasonOutsideTopN, outcomes[3].Reason)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, 2, metrics.Attempted)
}

func TestRefine_MarkdownWrappedPayloadAccepted(t *testing.T) {
	client := &fakeClient{response: validPayload + "\ntrailing commentary"}
	r := NewRefiner(client, DefaultConfig(), nil)

	outcomes, _ := r.Refine(context.Background(), types.CandidateProfile{}, types.JobPreferences{}, makeItems(1))
	require.True(t, outcomes[0].Refined)
	assert.InDelta(t, 0.8, outcomes[0].Model.OverallScore, 1e-9)
}
