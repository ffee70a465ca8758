// Package stats computes expected value and profitability figures for a case.
package stats

import (
	"math"

	"github.com/mswatii/cs2-casecheck/internal/models"
	"github.com/mswatii/cs2-casecheck/internal/naming"
)

// PriceFunc selects the price an item is valued at
type PriceFunc func(models.Item) float64

// Lookuper resolves real market prices. ok is false when the price is unknown.
type Lookuper interface {
	Lookup(name, phase string) (float64, bool)
}

// Result holds the statistics of one case under one price source.
// Pointer fields are nil when the figure is undefined ("N/A").
type Result struct {
	ExpectedValue float64  `json:"expected_value"`
	Profitability *float64 `json:"profitability"` // EV as a percentage of the case price
	ProfitChance  float64  `json:"profit_chance"` // Sum of odds of items worth more than the case
	MaxProfit     *float64 `json:"max_profit"`
	MaxLoss       *float64 `json:"max_loss"`
	ItemCount     int      `json:"item_count"`
}

// SitePrice values items at the price the site states
func SitePrice(item models.Item) float64 {
	return item.Price
}

// RealOrSitePrice values items at their real market price, falling back to
// the site price when the index has none. Items are never dropped.
func RealOrSitePrice(l Lookuper) PriceFunc {
	return func(item models.Item) float64 {
		if price, ok := realPrice(l, item); ok {
			return price
		}
		return item.Price
	}
}

// HasRealPrice reports whether at least one item resolves against l
func HasRealPrice(c models.Case, l Lookuper) bool {
	for _, item := range c.Items {
		if _, ok := realPrice(l, item); ok {
			return true
		}
	}
	return false
}

// Annotate pairs every item with its real price, leaving the site price intact
func Annotate(c models.Case, l Lookuper) []models.PricedItem {
	priced := make([]models.PricedItem, len(c.Items))
	for i, item := range c.Items {
		priced[i].Item = item
		if price, ok := realPrice(l, item); ok {
			priced[i].RealPrice = &price
		}
	}
	return priced
}

func realPrice(l Lookuper, item models.Item) (float64, bool) {
	if l == nil {
		return 0, false
	}
	price, ok := l.Lookup(naming.PriceKey(item), item.Phase)
	if !ok || !finite(price) {
		return 0, false
	}
	return price, true
}

// Compute derives the statistics of c with items valued by price. Odds are
// used as given; they are not renormalized when they do not sum to 100.
func Compute(c models.Case, price PriceFunc) Result {
	res := Result{ItemCount: len(c.Items)}
	casePrice := sanitize(c.Price)

	if len(c.Items) == 0 {
		return res
	}

	maxPrice := math.Inf(-1)
	minPrice := math.Inf(1)
	for _, item := range c.Items {
		p := sanitize(price(item))
		odds := sanitize(item.Odds)

		res.ExpectedValue += p * odds / 100
		if p > casePrice {
			res.ProfitChance += odds
		}
		maxPrice = math.Max(maxPrice, p)
		minPrice = math.Min(minPrice, p)
	}

	if casePrice > 0 {
		res.Profitability = ptr(res.ExpectedValue / casePrice * 100)
		res.MaxProfit = ptr(maxPrice - casePrice)
		res.MaxLoss = ptr(casePrice - minPrice)
	} else {
		res.MaxProfit = ptr(maxPrice)
		res.MaxLoss = ptr(minPrice)
	}
	return res
}

func sanitize(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ptr(v float64) *float64 {
	return &v
}
