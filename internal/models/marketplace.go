package models

// PriceUnit describes how a site encodes monetary amounts in its payloads
type PriceUnit int

const (
	Dollars PriceUnit = iota
	Cents
)

// Site represents a case-opening website a collaborator adapter reads from
type Site struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Currency  string    `json:"currency"`
	PriceUnit PriceUnit `json:"price_unit"`
}
