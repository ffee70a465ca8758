package models

// Item represents one possible drop of a case, in canonical form
type Item struct {
	ID             string  `json:"id"`
	WeaponName     string  `json:"weapon_name"`
	SkinName       string  `json:"skin_name"`
	Wear           Wear    `json:"wear"`
	WearFull       string  `json:"wear_full"`
	IsStatTrak     bool    `json:"is_stattrak"`
	IsSouvenir     bool    `json:"is_souvenir"`
	Price          float64 `json:"price"` // Site-stated price in USD
	Odds           float64 `json:"odds"`  // Percentage, 0-100
	Image          string  `json:"image"`
	MarketHashName string  `json:"market_hash_name"`
	Phase          string  `json:"phase,omitempty"` // Doppler phase, empty when not applicable
	Rarity         string  `json:"rarity"`
}

// ItemFields is the raw, possibly incomplete description of an item handed
// over by a site collaborator. Either the structured fields or Name (a single
// combined name such as "StatTrak™ AK-47 | Redline (Field-Tested)") may be set.
type ItemFields struct {
	ID         string
	Name       string
	WeaponName string
	SkinName   string
	Wear       string // Short code or full name
	WearFull   string
	IsStatTrak bool
	IsSouvenir bool
	Price      float64
	Odds       float64
	Image      string
	Phase      string
	Rarity     string
}

// PricedItem pairs an item with its resolved real market price.
// RealPrice is nil when the price index has no entry for the item.
type PricedItem struct {
	Item
	RealPrice *float64 `json:"real_price"`
}
