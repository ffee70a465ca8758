package models

import "math"

// Case represents a loot box sold by a site at a fixed price
type Case struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"` // USD, 0 when unknown
	Items []Item  `json:"items"`
}

// BuildCase assembles a Case. Missing or invalid numbers default to 0.
func BuildCase(id, name string, price float64, items []Item) Case {
	c := Case{
		ID:    id,
		Name:  name,
		Price: orZero(price),
		Items: make([]Item, len(items)),
	}
	for i, item := range items {
		item.Price = orZero(item.Price)
		item.Odds = orZero(item.Odds)
		c.Items[i] = item
	}
	return c
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
