package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mswatii/cs2-casecheck/internal/models"
)

func TestOpenDistribution(t *testing.T) {
	c := models.BuildCase("1", "Split", 1, []models.Item{
		{ID: "low", Odds: 20},
		{ID: "high", Odds: 80},
	})
	sim := New()

	const draws = 100000
	high := 0
	for i := 0; i < draws; i++ {
		item, ok := sim.Open(c)
		require.True(t, ok)
		if item.ID == "high" {
			high++
		}
	}

	share := float64(high) / draws
	assert.GreaterOrEqual(t, share, 0.78)
	assert.LessOrEqual(t, share, 0.82)
}

func TestOpenWalksCumulativeWeights(t *testing.T) {
	c := models.BuildCase("1", "Walk", 1, []models.Item{
		{ID: "a", Odds: 10},
		{ID: "b", Odds: 30},
		{ID: "c", Odds: 60},
	})

	tests := []struct {
		r    float64
		want string
	}{
		{0, "a"},
		{0.099, "a"},
		{0.15, "b"},
		{0.39, "b"},
		{0.41, "c"},
		{0.999999, "c"},
	}

	for _, tt := range tests {
		sim := NewWithSource(func() float64 { return tt.r })
		item, ok := sim.Open(c)
		require.True(t, ok)
		assert.Equal(t, tt.want, item.ID, "r=%v", tt.r)
	}
}

func TestOpenUsesUnnormalizedOdds(t *testing.T) {
	c := models.BuildCase("1", "Short", 1, []models.Item{
		{ID: "a", Odds: 1},
		{ID: "b", Odds: 1},
	})

	item, ok := NewWithSource(func() float64 { return 0.75 }).Open(c)
	require.True(t, ok)
	assert.Equal(t, "b", item.ID)
}

func TestOpenSkipsZeroWeightItems(t *testing.T) {
	c := models.Case{Items: []models.Item{
		{ID: "zero", Odds: 0},
		{ID: "negative", Odds: -4},
		{ID: "nan", Odds: math.NaN()},
		{ID: "only", Odds: 5},
		{ID: "trailing", Odds: 0},
	}}

	for _, r := range []float64{0, 0.5, 0.9999999} {
		item, ok := NewWithSource(func() float64 { return r }).Open(c)
		require.True(t, ok)
		assert.Equal(t, "only", item.ID)
	}
}

func TestOpenWithoutWeights(t *testing.T) {
	_, ok := New().Open(models.Case{})
	assert.False(t, ok)

	_, ok = New().Open(models.Case{Items: []models.Item{{ID: "a", Odds: 0}}})
	assert.False(t, ok)
}
