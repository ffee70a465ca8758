package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWear(t *testing.T) {
	tests := []struct {
		in   string
		want Wear
	}{
		{"FN", WearFN},
		{"ft", WearFT},
		{"Factory New", WearFN},
		{"Factory-New", WearFN},
		{"field tested", WearFT},
		{"Well-Worn", WearWW},
		{"Battle-Scarred", WearBS},
		{"Minimal Wear", WearMW},
		{"", WearNone},
		{"Holo", WearNone},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWear(tt.in))
		})
	}
}

func TestWearFromFloat(t *testing.T) {
	assert.Equal(t, WearFN, WearFromFloat(0.01))
	assert.Equal(t, WearMW, WearFromFloat(0.07))
	assert.Equal(t, WearFT, WearFromFloat(0.2))
	assert.Equal(t, WearWW, WearFromFloat(0.44))
	assert.Equal(t, WearBS, WearFromFloat(1.0))
	assert.Equal(t, WearNone, WearFromFloat(-1))
}

func TestBuildCaseDefaultsInvalidNumbers(t *testing.T) {
	items := []Item{
		{ID: "a", Price: math.NaN(), Odds: 40},
		{ID: "b", Price: 3, Odds: -5},
	}

	c := BuildCase("1", "Test", math.Inf(1), items)

	assert.Equal(t, 0.0, c.Price)
	assert.Equal(t, 0.0, c.Items[0].Price)
	assert.Equal(t, 40.0, c.Items[0].Odds)
	assert.Equal(t, 0.0, c.Items[1].Odds)

	// The caller's slice stays untouched
	assert.True(t, math.IsNaN(items[0].Price))
}
