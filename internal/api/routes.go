package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/mswatii/cs2-casecheck/internal/currency"
	"github.com/mswatii/cs2-casecheck/internal/database"
	"github.com/mswatii/cs2-casecheck/internal/models"
	"github.com/mswatii/cs2-casecheck/internal/naming"
	"github.com/mswatii/cs2-casecheck/internal/pipeline"
	"github.com/mswatii/cs2-casecheck/internal/pricing"
	"github.com/mswatii/cs2-casecheck/internal/sites"
)

const (
	DefaultRequestTimeout = 30 * time.Second

	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// SiteLister lists the sites cases can be viewed for
type SiteLister interface {
	Sites() []models.Site
}

// HistoryReader lists recorded case views, newest first
type HistoryReader interface {
	RecentViews(ctx context.Context, site, caseID string, limit int) ([]database.CaseViewSummary, error)
}

// Services are the collaborators the API exposes. Cases and Prices are
// required; the rest may be nil.
type Services struct {
	Cases           *pipeline.Pipeline
	Prices          *pricing.Table
	Sites           SiteLister
	Rates           pipeline.RateSource
	Preferences     currency.Preferences
	History         HistoryReader
	DefaultCurrency string
	Timeout         time.Duration
}

// Handler represents the API handler
type Handler struct {
	cases           *pipeline.Pipeline
	prices          *pricing.Table
	sites           SiteLister
	rates           pipeline.RateSource
	prefs           currency.Preferences
	history         HistoryReader
	presenter       *currency.Presenter
	defaultCurrency string
	timeout         time.Duration
}

// NewHandler creates a new API handler
func NewHandler(s Services) *Handler {
	h := &Handler{
		cases:           s.Cases,
		prices:          s.Prices,
		sites:           s.Sites,
		rates:           s.Rates,
		prefs:           s.Preferences,
		history:         s.History,
		presenter:       currency.NewPresenter(),
		defaultCurrency: s.DefaultCurrency,
		timeout:         s.Timeout,
	}
	if h.defaultCurrency == "" {
		h.defaultCurrency = currency.DefaultCurrency
	}
	if h.timeout <= 0 {
		h.timeout = DefaultRequestTimeout
	}
	return h
}

// HandleRequest routes a request to its handler
func (h *Handler) HandleRequest(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	switch {
	case path == "/api/health":
		h.handleHealth(ctx)
	case path == "/api/sites":
		h.handleSites(ctx)
	case path == "/api/cases/view":
		h.handleCaseView(ctx)
	case path == "/api/cases/open":
		h.handleCaseOpen(ctx)
	case path == "/api/cases/history":
		h.handleCaseHistory(ctx)
	case path == "/api/prices/lookup":
		h.handlePriceLookup(ctx)
	case path == "/api/prices/refresh":
		h.handlePriceRefresh(ctx)
	case path == "/api/normalize":
		h.handleNormalize(ctx)
	case path == "/api/exchange-rate":
		h.handleExchangeRate(ctx)
	case path == "/api/preferences/currency":
		h.handleCurrencyPreference(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("Not Found")
	}
}

// handleHealth handles the health check endpoint
func (h *Handler) handleHealth(ctx *fasthttp.RequestCtx) {
	response := map[string]interface{}{
		"status":       "ok",
		"time":         time.Now().Format(time.RFC3339),
		"price_count":  h.prices.Current().Len(),
		"prices_as_of": formatTime(h.prices.FetchedAt()),
	}
	writeJSON(ctx, fasthttp.StatusOK, response)
}

// handleSites lists the registered sites
func (h *Handler) handleSites(ctx *fasthttp.RequestCtx) {
	list := []models.Site{}
	if h.sites != nil {
		list = h.sites.Sites()
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"sites": list,
		"count": len(list),
	})
}

// handleCaseView runs a full case view
func (h *Handler) handleCaseView(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodGet) {
		return
	}
	site, caseID, ok := caseParams(ctx)
	if !ok {
		return
	}

	reqCtx, cancel := h.requestContext()
	defer cancel()

	view, err := h.cases.View(reqCtx, pipeline.Request{
		Site:   site,
		CaseID: caseID,
		UserID: string(ctx.QueryArgs().Peek("user")),
	})
	if err != nil {
		writeCaseError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, view)
}

// handleCaseOpen performs one test opening
func (h *Handler) handleCaseOpen(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodGet) {
		return
	}
	site, caseID, ok := caseParams(ctx)
	if !ok {
		return
	}

	reqCtx, cancel := h.requestContext()
	defer cancel()

	item, ok, err := h.cases.Open(reqCtx, site, caseID)
	if err != nil {
		writeCaseError(ctx, err)
		return
	}

	response := map[string]interface{}{
		"site": site,
		"case": caseID,
		"item": nil,
	}
	if ok {
		response["item"] = item
	}
	writeJSON(ctx, fasthttp.StatusOK, response)
}

// handleCaseHistory lists the recorded views of a case
func (h *Handler) handleCaseHistory(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodGet) {
		return
	}
	if h.history == nil {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString("Case view history is not recorded")
		return
	}
	site, caseID, ok := caseParams(ctx)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := string(ctx.QueryArgs().Peek("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString(fmt.Sprintf("Invalid limit %q", raw))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	reqCtx, cancel := h.requestContext()
	defer cancel()

	views, err := h.history.RecentViews(reqCtx, site, caseID, limit)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(fmt.Sprintf("Failed to load case history: %v", err))
		return
	}
	if views == nil {
		views = []database.CaseViewSummary{}
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"site":  site,
		"case":  caseID,
		"views": views,
		"count": len(views),
	})
}

// handlePriceLookup resolves one item's real price
func (h *Handler) handlePriceLookup(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodGet) {
		return
	}
	name := strings.TrimSpace(string(ctx.QueryArgs().Peek("name")))
	if name == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("Missing name parameter")
		return
	}

	item := naming.Normalize(models.ItemFields{
		Name:  name,
		Phase: string(ctx.QueryArgs().Peek("phase")),
	})

	reqCtx, cancel := h.requestContext()
	defer cancel()

	snap, err := h.prices.Load(reqCtx)
	if err != nil {
		log.Printf("Warning: price lookup served from a stale index: %v", err)
	}

	response := map[string]interface{}{
		"market_hash_name": item.MarketHashName,
		"phase":            item.Phase,
		"price":            nil,
		"found":            false,
	}
	if price, ok := snap.Lookup(naming.PriceKey(item), item.Phase); ok {
		response["price"] = price
		response["found"] = true
	}
	writeJSON(ctx, fasthttp.StatusOK, response)
}

// handlePriceRefresh discards the cached price index and loads a new one
func (h *Handler) handlePriceRefresh(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodPost) {
		return
	}

	reqCtx, cancel := h.requestContext()
	defer cancel()

	if err := h.prices.Invalidate(reqCtx); err != nil {
		log.Printf("Warning: %v", err)
	}

	snap, err := h.prices.Load(reqCtx)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		ctx.SetBodyString(fmt.Sprintf("Failed to refresh prices: %v", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"price_count":  snap.Len(),
		"prices_as_of": formatTime(h.prices.FetchedAt()),
	})
}

// handleNormalize returns the canonical form of a combined item name
func (h *Handler) handleNormalize(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodGet) {
		return
	}
	name := string(ctx.QueryArgs().Peek("name"))
	if strings.TrimSpace(name) == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("Missing name parameter")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, naming.Normalize(models.ItemFields{Name: name}))
}

// handleExchangeRate handles the exchange rate endpoint
func (h *Handler) handleExchangeRate(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodGet) {
		return
	}
	code := strings.ToUpper(string(ctx.QueryArgs().Peek("currency")))
	if code == "" {
		code = h.defaultCurrency
	}

	reqCtx, cancel := h.requestContext()
	defer cancel()

	rate := 1.0
	if h.rates != nil {
		rate = h.rates.Rate(reqCtx, code)
	}

	response := map[string]interface{}{
		"currency":   code,
		"symbol":     h.presenter.Symbol(code),
		"usd_rate":   rate,
		"one_usd":    h.presenter.Format(1, code, rate),
		"updated_at": time.Now().Format(time.RFC3339),
	}
	writeJSON(ctx, fasthttp.StatusOK, response)
}

// handleCurrencyPreference stores a user's display currency
func (h *Handler) handleCurrencyPreference(ctx *fasthttp.RequestCtx) {
	if !requireMethod(ctx, fasthttp.MethodPost) {
		return
	}
	if h.prefs == nil {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString("Currency preferences are not configured")
		return
	}

	user := string(ctx.QueryArgs().Peek("user"))
	code := strings.ToUpper(string(ctx.QueryArgs().Peek("currency")))
	if user == "" || code == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("Missing user or currency parameter")
		return
	}

	reqCtx, cancel := h.requestContext()
	defer cancel()

	if err := h.prefs.SetCurrency(reqCtx, user, code); err != nil {
		if errors.Is(err, currency.ErrUnsupportedCurrency) {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
		} else {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		}
		ctx.SetBodyString(fmt.Sprintf("Failed to save currency preference: %v", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"user":     user,
		"currency": code,
	})
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

func requireMethod(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
	ctx.SetBodyString("Method Not Allowed")
	return false
}

func caseParams(ctx *fasthttp.RequestCtx) (string, string, bool) {
	site := string(ctx.QueryArgs().Peek("site"))
	caseID := string(ctx.QueryArgs().Peek("case"))
	if site == "" || caseID == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("Missing site or case parameter")
		return "", "", false
	}
	return site, caseID, true
}

func writeCaseError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, sites.ErrUnknownSite):
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		ctx.SetStatusCode(fasthttp.StatusGatewayTimeout)
	default:
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	}
	ctx.SetBodyString(fmt.Sprintf("Failed to load case: %v", err))
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
