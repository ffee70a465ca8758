// Package naming converts between structured item fields and the canonical
// market hash name used as the price lookup key.
//
// Canonical order:
//
//	[★ ][StatTrak™ |Souvenir ]Weapon[ | Skin][ (Wear)][ Phase]
package naming

import (
	"strings"

	"github.com/mswatii/cs2-casecheck/internal/models"
)

const (
	starPrefix     = "★ "
	statTrakPrefix = "StatTrak™ "
	souvenirPrefix = "Souvenir "
	skinSeparator  = " | "
	stickerWeapon  = "Sticker"
)

// Glyphs sites use in place of the star that marks knives and gloves
var starGlyphs = []string{"★", "☆", "⋆", "*"}

// DopplerPhases in match order; the first label found in a skin name wins
var DopplerPhases = []string{
	"Phase 1",
	"Phase 2",
	"Phase 3",
	"Phase 4",
	"Ruby",
	"Sapphire",
	"Emerald",
	"Black Pearl",
}

// parts is the decomposed form every conversion goes through
type parts struct {
	star     bool
	statTrak bool
	souvenir bool
	weapon   string // without star
	skin     string
	wear     models.Wear
	phase    string
}

func (p parts) weaponName() string {
	if p.star && p.weapon != "" {
		return starPrefix + p.weapon
	}
	return p.weapon
}

func (p parts) marketHashName() string {
	var b strings.Builder
	if p.star {
		b.WriteString(starPrefix)
	}
	if p.statTrak {
		b.WriteString(statTrakPrefix)
	} else if p.souvenir {
		b.WriteString(souvenirPrefix)
	}
	b.WriteString(p.weapon)
	if p.skin != "" {
		b.WriteString(skinSeparator)
		b.WriteString(p.skin)
	}
	if p.wear != models.WearNone {
		b.WriteString(" (")
		b.WriteString(p.wear.Full())
		b.WriteString(")")
	}
	if p.phase != "" {
		b.WriteString(" ")
		b.WriteString(p.phase)
	}
	return b.String()
}

// settle drops segments the item kind cannot carry: stickers, vanilla
// knives/gloves and boosts have no wear, and only Doppler finishes have phases.
func (p *parts) settle() {
	if p.weapon == stickerWeapon || p.skin == "" {
		p.wear = models.WearNone
		p.phase = ""
	}
	if !strings.Contains(p.skin, "Doppler") {
		p.phase = ""
	}
	if p.statTrak {
		p.souvenir = false
	}
}

// Build returns the canonical market hash name for the given fields
func Build(f models.ItemFields) string {
	return decompose(f).marketHashName()
}

// Normalize turns raw fields into a canonical Item. It never fails; anything
// that cannot be resolved is left empty.
func Normalize(f models.ItemFields) models.Item {
	p := decompose(f)
	return models.Item{
		ID:             f.ID,
		WeaponName:     p.weaponName(),
		SkinName:       p.skin,
		Wear:           p.wear,
		WearFull:       p.wear.Full(),
		IsStatTrak:     p.statTrak,
		IsSouvenir:     p.souvenir,
		Price:          f.Price,
		Odds:           f.Odds,
		Image:          f.Image,
		MarketHashName: p.marketHashName(),
		Phase:          p.phase,
		Rarity:         f.Rarity,
	}
}

// Parse splits a single combined name into structured fields
func Parse(name string) models.ItemFields {
	p := parseName(name)
	return models.ItemFields{
		Name:       name,
		WeaponName: p.weaponName(),
		SkinName:   p.skin,
		Wear:       string(p.wear),
		WearFull:   p.wear.Full(),
		IsStatTrak: p.statTrak,
		IsSouvenir: p.souvenir,
		Phase:      p.phase,
	}
}

// Canonical rewrites any accepted spelling of a name into canonical form
func Canonical(name string) string {
	return parseName(name).marketHashName()
}

// PriceKey returns the name an item is listed under in the price index.
// Doppler phases are priced through the entry's phase table, so the phase
// suffix is not part of the key.
func PriceKey(item models.Item) string {
	if item.Phase == "" {
		return item.MarketHashName
	}
	return strings.TrimSuffix(item.MarketHashName, " "+item.Phase)
}

func parseName(name string) parts {
	var p parts
	s := collapse(name)
	s, p.star = stripStar(s)
	s, p.statTrak = stripToken(s, "StatTrak™", "StatTrak")
	s, p.souvenir = stripLeading(s, "Souvenir")
	if !p.star {
		s, p.star = stripStar(s)
	}
	s, p.wear = stripWear(s)
	p.weapon, p.skin = splitWeapon(s)
	p.skin, p.phase = stripPhase(p.skin)
	p.settle()
	return p
}

func decompose(f models.ItemFields) parts {
	if f.WeaponName == "" && f.Name != "" {
		parsed := Parse(f.Name)
		parsed.ID = f.ID
		parsed.IsStatTrak = parsed.IsStatTrak || f.IsStatTrak
		parsed.IsSouvenir = parsed.IsSouvenir || f.IsSouvenir
		if f.Wear != "" || f.WearFull != "" {
			parsed.Wear, parsed.WearFull = f.Wear, f.WearFull
		}
		if f.Phase != "" {
			parsed.Phase = f.Phase
		}
		f.WeaponName, f.SkinName = parsed.WeaponName, parsed.SkinName
		f.Wear, f.WearFull = parsed.Wear, parsed.WearFull
		f.IsStatTrak, f.IsSouvenir = parsed.IsStatTrak, parsed.IsSouvenir
		f.Phase = parsed.Phase
	}

	var p parts
	weapon := collapse(f.WeaponName)
	skin := collapse(f.SkinName)

	weapon, p.star = stripStar(weapon)
	weapon, stWeapon := stripToken(weapon, "StatTrak™", "StatTrak")
	skin, stSkin := stripToken(skin, "StatTrak™", "StatTrak")
	weapon, svWeapon := stripLeading(weapon, "Souvenir")
	if !p.star {
		weapon, p.star = stripStar(weapon)
	}
	p.statTrak = f.IsStatTrak || stWeapon || stSkin
	p.souvenir = f.IsSouvenir || svWeapon

	weapon, weaponWear := stripWear(weapon)
	skin, skinWear := stripWear(skin)

	if w, s := splitWeapon(weapon); s != "" || w == stickerWeapon {
		weapon = w
		if skin == "" {
			skin = s
		}
	}
	p.weapon = weapon

	skin, skinPhase := stripPhase(skin)
	p.skin = skin

	p.wear = models.ParseWear(f.Wear)
	if p.wear == models.WearNone {
		p.wear = models.ParseWear(f.WearFull)
	}
	if p.wear == models.WearNone {
		p.wear = skinWear
	}
	if p.wear == models.WearNone {
		p.wear = weaponWear
	}

	p.phase = canonicalPhase(f.Phase)
	if p.phase == "" {
		p.phase = skinPhase
	}

	p.settle()
	return p
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripStar(s string) (string, bool) {
	for _, g := range starGlyphs {
		if strings.HasPrefix(s, g) {
			return collapse(strings.TrimPrefix(s, g)), true
		}
	}
	return s, false
}

// stripToken removes every occurrence of the first token found in s
func stripToken(s string, tokens ...string) (string, bool) {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return collapse(strings.ReplaceAll(s, tok, " ")), true
		}
	}
	return s, false
}

// stripLeading removes tok only when it is the first word of s. Souvenir
// marks the variant only in front; elsewhere it is part of the item's name.
func stripLeading(s, tok string) (string, bool) {
	if rest, ok := strings.CutPrefix(s, tok+" "); ok {
		return collapse(rest), true
	}
	return s, false
}

func stripWear(s string) (string, models.Wear) {
	for _, w := range models.Wears {
		seg := "(" + w.Full() + ")"
		if i := strings.LastIndex(s, seg); i >= 0 {
			return collapse(s[:i] + " " + s[i+len(seg):]), w
		}
	}
	return s, models.WearNone
}

func splitWeapon(s string) (string, string) {
	if rest, ok := strings.CutPrefix(s, stickerWeapon+" |"); ok {
		return stickerWeapon, collapse(rest)
	}
	if weapon, skin, ok := strings.Cut(s, skinSeparator); ok {
		return collapse(weapon), collapse(skin)
	}
	return s, ""
}

func stripPhase(skin string) (string, string) {
	if !strings.Contains(skin, "Doppler") {
		return skin, ""
	}
	for _, phase := range DopplerPhases {
		if i := strings.Index(skin, phase); i >= 0 {
			return collapse(skin[:i] + " " + skin[i+len(phase):]), phase
		}
	}
	return skin, ""
}

func canonicalPhase(s string) string {
	key := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if key == "" {
		return ""
	}
	for _, phase := range DopplerPhases {
		if key == strings.ToLower(strings.ReplaceAll(phase, " ", "")) {
			return phase
		}
	}
	return ""
}
