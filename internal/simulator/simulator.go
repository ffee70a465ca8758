// Package simulator draws a single weighted-random item from a case for a
// no-stakes "test opening". It is not a certified-fair RNG.
package simulator

import (
	"math/rand"

	"github.com/mswatii/cs2-casecheck/internal/models"
)

// Simulator draws items using their odds as unnormalized weights
type Simulator struct {
	draw func() float64
}

// New creates a simulator backed by the shared math/rand generator
func New() *Simulator {
	return &Simulator{draw: rand.Float64}
}

// NewWithSource creates a simulator drawing from source, which must return
// values in [0, 1)
func NewWithSource(source func() float64) *Simulator {
	return &Simulator{draw: source}
}

// Open draws one item. ok is false when the case has no items or no item
// carries a positive weight. Every call is an independent draw.
func (s *Simulator) Open(c models.Case) (models.Item, bool) {
	total := 0.0
	for _, item := range c.Items {
		total += weight(item)
	}
	if total <= 0 {
		return models.Item{}, false
	}

	r := s.draw() * total
	last := -1
	for i, item := range c.Items {
		w := weight(item)
		if w == 0 {
			continue
		}
		last = i
		r -= w
		if r <= 0 {
			return item, true
		}
	}

	// Rounding can leave a sliver of r after the last weight
	return c.Items[last], true
}

func weight(item models.Item) float64 {
	if !(item.Odds > 0) {
		return 0
	}
	return item.Odds
}
