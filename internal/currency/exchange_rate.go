package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mswatii/cs2-casecheck/internal/fetch"
)

const (
	// USD-based rate table
	DefaultExchangeRateURL = "https://open.er-api.com/v6/latest/USD"
	// How often to refresh the rates (every 1 hour)
	ExchangeRateRefreshInterval = 1 * time.Hour
)

// ratesResponse is the structure of the exchange rate API response
type ratesResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// RateProvider caches USD conversion rates
type RateProvider struct {
	url    string
	client *fetch.Client
	now    func() time.Time

	mu        sync.RWMutex
	rates     map[string]float64
	lastFetch time.Time
}

// NewRateProvider creates a provider reading from url
func NewRateProvider(url string, client *fetch.Client) *RateProvider {
	if client == nil {
		client = fetch.New(nil, 0)
	}
	return &RateProvider{url: url, client: client, now: time.Now}
}

// Rate returns how many units of code one USD buys. USD, unknown currencies
// and failed fetches without a previous good table all yield 1.
func (p *RateProvider) Rate(ctx context.Context, code string) float64 {
	code = normalizeCode(code)
	if code == DefaultCurrency {
		return 1
	}
	return lookupRate(p.table(ctx), code)
}

func (p *RateProvider) table(ctx context.Context) map[string]float64 {
	p.mu.RLock()
	// Check if we have a recent cached table
	if p.rates != nil && p.now().Sub(p.lastFetch) < ExchangeRateRefreshInterval {
		rates := p.rates
		p.mu.RUnlock()
		return rates
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check in case another goroutine already updated while we were waiting for the lock
	if p.rates != nil && p.now().Sub(p.lastFetch) < ExchangeRateRefreshInterval {
		return p.rates
	}

	rates, err := p.fetchRates(ctx)
	if err != nil {
		log.Printf("Error fetching exchange rates: %v, using last known rates", err)
		return p.rates
	}

	p.rates = rates
	p.lastFetch = p.now()
	log.Printf("Updated exchange rates for %d currencies", len(rates))
	return rates
}

func (p *RateProvider) fetchRates(ctx context.Context) (map[string]float64, error) {
	body, err := p.client.Get(ctx, p.url)
	if err != nil {
		return nil, err
	}

	var resp ratesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse exchange rate API response: %w", err)
	}
	if resp.Result != "" && resp.Result != "success" {
		return nil, fmt.Errorf("exchange rate API returned result %q", resp.Result)
	}
	if len(resp.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate API returned no rates")
	}
	return resp.Rates, nil
}

func lookupRate(rates map[string]float64, code string) float64 {
	rate, ok := rates[code]
	if !ok || !finite(rate) || rate <= 0 {
		return 1
	}
	return rate
}
