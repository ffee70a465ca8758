package sites

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mswatii/cs2-casecheck/internal/models"
	"github.com/mswatii/cs2-casecheck/internal/naming"
)

const CaseDropName = "casedrop"

// caseDropPayload is the structure returned by the CaseDrop contents API.
// Numbers arrive as strings, probabilities as fractions of 1 and every item
// only has its combined display name.
type caseDropPayload struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Cost     string          `json:"cost"`
	Contents *[]caseDropItem `json:"contents"`
}

type caseDropItem struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Price       string `json:"price"`
	Probability string `json:"probability"`
	Icon        string `json:"icon"`
	Grade       string `json:"grade"`
}

// CaseDrop adapts the CaseDrop site
type CaseDrop struct {
	baseURL string
}

// NewCaseDrop creates an adapter for the CaseDrop instance at baseURL
func NewCaseDrop(baseURL string) *CaseDrop {
	return &CaseDrop{baseURL: strings.TrimRight(baseURL, "/")}
}

var _ Adapter = (*CaseDrop)(nil)

func (a *CaseDrop) Site() models.Site {
	return models.Site{Name: CaseDropName, URL: a.baseURL, Currency: "USD", PriceUnit: models.Dollars}
}

func (a *CaseDrop) CaseURL(caseID string) string {
	return a.baseURL + "/case/" + url.PathEscape(caseID) + "/contents"
}

func (a *CaseDrop) Transform(payload []byte) (models.Case, error) {
	var raw caseDropPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.Case{}, fmt.Errorf("failed to parse CaseDrop response: %w", err)
	}
	if raw.Contents == nil {
		return models.Case{}, ErrStructuralMismatch
	}

	items := make([]models.Item, 0, len(*raw.Contents))
	for _, entry := range *raw.Contents {
		odds := parseAmount(entry.Probability, "probability")
		items = append(items, naming.Normalize(models.ItemFields{
			ID:     entry.ID,
			Name:   entry.FullName,
			Price:  parseAmount(entry.Price, "price"),
			Odds:   decimal.NewFromFloat(odds).Mul(decimal.NewFromInt(100)).InexactFloat64(),
			Image:  entry.Icon,
			Rarity: entry.Grade,
		}))
	}

	return models.BuildCase(raw.ID, raw.Title, parseAmount(raw.Cost, "cost"), items), nil
}

// parseAmount reads a decimal string such as "$2.50"; unparsable values are 0
func parseAmount(s, field string) float64 {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Printf("Warning: Could not parse %s %q: %v", field, s, err)
		return 0
	}
	return d.InexactFloat64()
}
