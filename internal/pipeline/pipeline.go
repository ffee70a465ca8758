// Package pipeline runs one case view: the case payload, the price index and
// the viewer's currency are fetched concurrently, joined, and turned into two
// statistics series (site prices and real prices).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mswatii/cs2-casecheck/internal/currency"
	"github.com/mswatii/cs2-casecheck/internal/models"
	"github.com/mswatii/cs2-casecheck/internal/pricing"
	"github.com/mswatii/cs2-casecheck/internal/simulator"
	"github.com/mswatii/cs2-casecheck/internal/stats"
)

const DefaultTimeout = 15 * time.Second

// CaseFetcher supplies canonical cases from site collaborators
type CaseFetcher interface {
	FetchCase(ctx context.Context, site, caseID string) (models.Case, error)
}

// SnapshotLoader supplies the price index. It must return a usable snapshot
// even when it also returns an error.
type SnapshotLoader interface {
	Load(ctx context.Context) (*pricing.Snapshot, error)
}

// RateSource converts USD into other currencies
type RateSource interface {
	Rate(ctx context.Context, code string) float64
}

// Recorder persists a summary of every completed view
type Recorder interface {
	RecordView(ctx context.Context, v *View) error
}

// Request identifies one case view
type Request struct {
	Site   string
	CaseID string
	UserID string
}

// Display holds the statistics rendered in the viewer's currency
type Display struct {
	ExpectedValue string `json:"expected_value"`
	Profitability string `json:"profitability"`
	ProfitChance  string `json:"profit_chance"`
	MaxProfit     string `json:"max_profit"`
	MaxLoss       string `json:"max_loss"`
}

// Series is one statistics run with its rating and display strings
type Series struct {
	stats.Result
	Rating  stats.Rating `json:"rating"`
	Display Display      `json:"display"`
}

// View is the outcome of one case view
type View struct {
	ID        string              `json:"id"`
	Site      string              `json:"site"`
	Case      models.Case         `json:"case"`
	Items     []models.PricedItem `json:"items"`
	SiteStats Series              `json:"site_stats"`
	RealStats *Series             `json:"real_stats"` // nil when no item has a real price
	Currency  string              `json:"currency"`
	Rate      float64             `json:"rate"`
	ViewedAt  time.Time           `json:"viewed_at"`
}

// Pipeline wires the collaborators of a case view
type Pipeline struct {
	cases           CaseFetcher
	prices          SnapshotLoader
	prefs           currency.Preferences
	rates           RateSource
	recorder        Recorder
	presenter       *currency.Presenter
	simulator       *simulator.Simulator
	timeout         time.Duration
	defaultCurrency string
}

// Option configures a Pipeline
type Option func(*Pipeline)

func WithPreferences(prefs currency.Preferences) Option {
	return func(p *Pipeline) { p.prefs = prefs }
}

func WithRates(rates RateSource) Option {
	return func(p *Pipeline) { p.rates = rates }
}

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithSimulator(s *simulator.Simulator) Option {
	return func(p *Pipeline) { p.simulator = s }
}

// WithTimeout bounds the fetch phase of a view
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithDefaultCurrency(code string) Option {
	return func(p *Pipeline) {
		if code != "" {
			p.defaultCurrency = code
		}
	}
}

// New creates a pipeline. Only the case fetcher and price loader are required.
func New(cases CaseFetcher, prices SnapshotLoader, opts ...Option) *Pipeline {
	p := &Pipeline{
		cases:           cases,
		prices:          prices,
		presenter:       currency.NewPresenter(),
		simulator:       simulator.New(),
		timeout:         DefaultTimeout,
		defaultCurrency: currency.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// View runs one case view. Only a failure to obtain the case is returned as
// an error; a missing price index or currency preference degrades the view.
func (p *Pipeline) View(ctx context.Context, req Request) (*View, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		c    models.Case
		snap *pricing.Snapshot
		code string
		rate float64
	)

	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		c, err = p.cases.FetchCase(gctx, req.Site, req.CaseID)
		return err
	})
	g.Go(func() error {
		s, err := p.prices.Load(gctx)
		if err != nil {
			log.Printf("Warning: real prices unavailable for %s/%s: %v", req.Site, req.CaseID, err)
		}
		snap = s
		return nil
	})
	g.Go(func() error {
		code = p.currencyFor(gctx, req.UserID)
		rate = 1
		if p.rates != nil {
			rate = p.rates.Rate(gctx, code)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("case view %s/%s: %w", req.Site, req.CaseID, err)
	}
	if snap == nil {
		snap = pricing.EmptySnapshot()
	}

	v := &View{
		ID:       uuid.NewString(),
		Site:     req.Site,
		Case:     c,
		Items:    stats.Annotate(c, snap),
		Currency: code,
		Rate:     rate,
		ViewedAt: time.Now().UTC(),
	}
	v.SiteStats = p.series(stats.Compute(c, stats.SitePrice), code, rate)
	if stats.HasRealPrice(c, snap) {
		realSeries := p.series(stats.Compute(c, stats.RealOrSitePrice(snap)), code, rate)
		v.RealStats = &realSeries
	}

	if p.recorder != nil {
		if err := p.recorder.RecordView(ctx, v); err != nil {
			log.Printf("Warning: could not record view %s: %v", v.ID, err)
		}
	}
	return v, nil
}

// Open performs one test opening of a case. ok is false when the case has
// nothing to draw.
func (p *Pipeline) Open(ctx context.Context, site, caseID string) (models.Item, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	c, err := p.cases.FetchCase(ctx, site, caseID)
	if err != nil {
		return models.Item{}, false, fmt.Errorf("test opening %s/%s: %w", site, caseID, err)
	}

	item, ok := p.simulator.Open(c)
	return item, ok, nil
}

func (p *Pipeline) currencyFor(ctx context.Context, userID string) string {
	if p.prefs == nil || userID == "" {
		return p.defaultCurrency
	}

	code, err := p.prefs.Currency(ctx, userID)
	if err != nil {
		if !errors.Is(err, currency.ErrNoPreference) {
			log.Printf("Warning: could not load currency preference for %s: %v", userID, err)
		}
		return p.defaultCurrency
	}
	return code
}

func (p *Pipeline) series(res stats.Result, code string, rate float64) Series {
	return Series{
		Result: res,
		Rating: stats.Rate(res.Profitability),
		Display: Display{
			ExpectedValue: p.presenter.Format(res.ExpectedValue, code, rate),
			Profitability: percent(res.Profitability),
			ProfitChance:  fmt.Sprintf("%.2f%%", res.ProfitChance),
			MaxProfit:     p.signed(res.MaxProfit, code, rate),
			MaxLoss:       p.amount(res.MaxLoss, code, rate),
		},
	}
}

func (p *Pipeline) signed(v *float64, code string, rate float64) string {
	if v == nil {
		return "N/A"
	}
	return p.presenter.FormatSigned(*v, code, rate)
}

func (p *Pipeline) amount(v *float64, code string, rate float64) string {
	if v == nil {
		return "N/A"
	}
	return p.presenter.Format(*v, code, rate)
}

func percent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v)
}
