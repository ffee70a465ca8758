package pricing

import (
	"context"

	"github.com/mswatii/cs2-casecheck/internal/fetch"
)

const DefaultPriceSourceURL = "https://prices.csgotrader.app/latest/prices_v6.json"

// Source fetches the raw price index
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPSource downloads the price index over HTTP
type HTTPSource struct {
	url    string
	client *fetch.Client
}

// NewHTTPSource creates a price source for url
func NewHTTPSource(url string, client *fetch.Client) *HTTPSource {
	if client == nil {
		client = fetch.New(nil, 0)
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch downloads the price index
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, s.url)
}
