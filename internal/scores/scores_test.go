package scores

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp_Range(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.5))
	assert.Equal(t, 1.0, Clamp(1.5))
	assert.Equal(t, 0.42, Clamp(0.42))
	assert.Equal(t, 0.0, Clamp(0.0))
	assert.Equal(t, 1.0, Clamp(1.0))
}

func TestClamp_Idempotent(t *testing.T) {
	// clamp(score) == score for every already-clamped score
	for _, v := range []float64{0.0, 0.001, 0.25, 0.5, 0.999, 1.0} {
		assert.Equal(t, v, Clamp(Clamp(v)))
	}
}

func TestClamp100(t *testing.T) {
	assert.Equal(t, 0.0, Clamp100(-3))
	assert.Equal(t, 100.0, Clamp100(170))
	assert.Equal(t, 70.0, Clamp100(70))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 57.5, Round2(57.499999999))
	assert.Equal(t, 0.33, Round2(1.0/3.0))
}

func TestDefaultWeights(t *testing.T) {
	pw := DefaultPriorityWeights()
	assert.InDelta(t, 1.0, pw.SkillMatch+pw.Stipend+pw.Location+pw.CompanyType, 1e-9)

	cw := DefaultCandidateFitWeights()
	assert.InDelta(t, 1.0, cw.Education+cw.Experience+cw.Coding+cw.JDRelevance, 1e-9)

	bw := DefaultBlendWeights()
	assert.InDelta(t, 1.0, bw.Heuristic+bw.Model, 1e-9)
}
