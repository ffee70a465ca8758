// Package sites holds the thin per-site adapters that turn a site's raw case
// payload into the canonical Case. Adapters only extract fields; naming and
// ordering rules live in the naming package.
package sites

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mswatii/cs2-casecheck/internal/fetch"
	"github.com/mswatii/cs2-casecheck/internal/models"
)

var (
	// ErrStructuralMismatch is returned when a payload lacks its item
	// container entirely. It is the one fatal condition of a case view.
	ErrStructuralMismatch = errors.New("payload has no item container")

	// ErrUnknownSite is returned for a site no adapter is registered for
	ErrUnknownSite = errors.New("unknown site")
)

// Adapter maps one site's raw payload into the canonical shape
type Adapter interface {
	Site() models.Site
	CaseURL(caseID string) string
	Transform(payload []byte) (models.Case, error)
}

// Registry fetches case payloads and dispatches them to the site's adapter
type Registry struct {
	client   *fetch.Client
	adapters map[string]Adapter
}

// NewRegistry creates a registry over adapters, keyed by site name
func NewRegistry(client *fetch.Client, adapters ...Adapter) *Registry {
	if client == nil {
		client = fetch.New(nil, 0)
	}
	r := &Registry{client: client, adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Site().Name] = a
	}
	return r
}

// Sites lists the registered sites sorted by name
func (r *Registry) Sites() []models.Site {
	out := make([]models.Site, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Site())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FetchCase downloads and transforms one case
func (r *Registry) FetchCase(ctx context.Context, site, caseID string) (models.Case, error) {
	adapter, ok := r.adapters[site]
	if !ok {
		return models.Case{}, fmt.Errorf("%w: %s", ErrUnknownSite, site)
	}

	payload, err := r.client.Get(ctx, adapter.CaseURL(caseID))
	if err != nil {
		return models.Case{}, fmt.Errorf("fetching case %s from %s: %w", caseID, site, err)
	}

	c, err := adapter.Transform(payload)
	if err != nil {
		return models.Case{}, fmt.Errorf("transforming case %s from %s: %w", caseID, site, err)
	}
	return c, nil
}
