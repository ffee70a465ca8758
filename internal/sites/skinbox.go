package sites

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mswatii/cs2-casecheck/internal/models"
	"github.com/mswatii/cs2-casecheck/internal/naming"
)

const SkinBoxName = "skinbox"

// skinBoxPayload is the structure returned by the SkinBox case API.
// Prices are integer cents and drops come with structured fields.
type skinBoxPayload struct {
	Case *struct {
		ID         string         `json:"id"`
		Name       string         `json:"name"`
		PriceCents int64          `json:"price_cents"`
		Drops      *[]skinBoxDrop `json:"drops"`
	} `json:"case"`
}

type skinBoxDrop struct {
	ID         string   `json:"id"`
	Weapon     string   `json:"weapon"`
	Finish     string   `json:"finish"`
	Exterior   string   `json:"exterior"`
	Float      *float64 `json:"float"`
	StatTrak   int      `json:"stattrak"`
	Souvenir   bool     `json:"souvenir"`
	Phase      string   `json:"phase"`
	PriceCents int64    `json:"price_cents"`
	Chance     float64  `json:"chance"` // Percent
	Image      string   `json:"image"`
	Rarity     string   `json:"rarity"`
}

// SkinBox adapts the SkinBox site
type SkinBox struct {
	baseURL string
}

// NewSkinBox creates an adapter for the SkinBox instance at baseURL
func NewSkinBox(baseURL string) *SkinBox {
	return &SkinBox{baseURL: strings.TrimRight(baseURL, "/")}
}

var _ Adapter = (*SkinBox)(nil)

func (a *SkinBox) Site() models.Site {
	return models.Site{Name: SkinBoxName, URL: a.baseURL, Currency: "USD", PriceUnit: models.Cents}
}

func (a *SkinBox) CaseURL(caseID string) string {
	return a.baseURL + "/api/cases/" + url.PathEscape(caseID)
}

func (a *SkinBox) Transform(payload []byte) (models.Case, error) {
	var raw skinBoxPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.Case{}, fmt.Errorf("failed to parse SkinBox response: %w", err)
	}
	if raw.Case == nil || raw.Case.Drops == nil {
		return models.Case{}, ErrStructuralMismatch
	}

	items := make([]models.Item, 0, len(*raw.Case.Drops))
	for _, drop := range *raw.Case.Drops {
		exterior := drop.Exterior
		if exterior == "" && drop.Float != nil {
			exterior = string(models.WearFromFloat(*drop.Float))
		}

		items = append(items, naming.Normalize(models.ItemFields{
			ID:         drop.ID,
			WeaponName: drop.Weapon,
			SkinName:   drop.Finish,
			Wear:       exterior,
			IsStatTrak: drop.StatTrak == 1,
			IsSouvenir: drop.Souvenir,
			Phase:      drop.Phase,
			Price:      centsToUSD(drop.PriceCents),
			Odds:       drop.Chance,
			Image:      drop.Image,
			Rarity:     drop.Rarity,
		}))
	}

	return models.BuildCase(raw.Case.ID, raw.Case.Name, centsToUSD(raw.Case.PriceCents), items), nil
}

func centsToUSD(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
