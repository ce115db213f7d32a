package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_WithinTolerance(t *testing.T) {
	ref := map[string]map[string]float64{"mu": {"mean": 1.0, "std": 1.0}}
	actual := map[string]map[string]float64{"mu": {"mean": 1.05, "std": 0.95}}

	result := Stats(ref, actual, 0.15, DefaultMetrics)

	assert.True(t, result.Passed)
	assert.Empty(t, result.Failures)
	assert.InDelta(t, 0.05, result.Details["mu"]["mean"].RelError, 1e-12)
}

func TestStats_ExceedsTolerance(t *testing.T) {
	ref := map[string]map[string]float64{"mu": {"mean": 1.0, "std": 1.0}}
	actual := map[string]map[string]float64{"mu": {"mean": 2.0, "std": 1.0}}

	result := Stats(ref, actual, 0.15, DefaultMetrics)

	assert.False(t, result.Passed)
	assert.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "mu.mean")
	assert.False(t, result.Details["mu"]["mean"].Passed)
	assert.True(t, result.Details["mu"]["std"].Passed)
}

func TestStats_MissingParam(t *testing.T) {
	ref := map[string]map[string]float64{"mu": {"mean": 1.0, "std": 1.0}}

	result := Stats(ref, map[string]map[string]float64{}, 0.15, DefaultMetrics)

	assert.False(t, result.Passed)
	assert.Contains(t, result.Failures, "missing param: mu")
}

func TestStats_NearZeroReference(t *testing.T) {
	// The relative-error denominator is floored so a zero reference does
	// not divide by zero.
	ref := map[string]map[string]float64{"mu": {"mean": 0.0, "std": 1.0}}
	actual := map[string]map[string]float64{"mu": {"mean": 0.0, "std": 1.0}}

	result := Stats(ref, actual, 0.15, DefaultMetrics)
	assert.True(t, result.Passed)
}

func TestBasicStats(t *testing.T) {
	stats := BasicStats([]float64{1.0, 2.0, 3.0, 4.0})

	assert.InDelta(t, 2.5, stats["mean"], 1e-12)
	// Population standard deviation.
	assert.InDelta(t, math.Sqrt(1.25), stats["std"], 1e-12)
}

func TestBasicStats_Empty(t *testing.T) {
	stats := BasicStats(nil)
	assert.True(t, math.IsNaN(stats["mean"]))
	assert.True(t, math.IsNaN(stats["std"]))
}

func TestStatsFromDraws(t *testing.T) {
	out := StatsFromDraws(map[string][]float64{
		"mu":  {1.0, 1.0},
		"tau": {2.0, 4.0},
	})

	assert.InDelta(t, 1.0, out["mu"]["mean"], 1e-12)
	assert.InDelta(t, 3.0, out["tau"]["mean"], 1e-12)
	assert.InDelta(t, 1.0, out["tau"]["std"], 1e-12)
}
