package models

import (
	"strings"
)

// Wear is the exterior grade of a skin
type Wear string

const (
	WearFN   Wear = "FN"
	WearMW   Wear = "MW"
	WearFT   Wear = "FT"
	WearWW   Wear = "WW"
	WearBS   Wear = "BS"
	WearNone Wear = ""
)

// Wears lists the five grades from best to worst
var Wears = []Wear{WearFN, WearMW, WearFT, WearWW, WearBS}

var wearFullNames = map[Wear]string{
	WearFN: "Factory New",
	WearMW: "Minimal Wear",
	WearFT: "Field-Tested",
	WearWW: "Well-Worn",
	WearBS: "Battle-Scarred",
}

// Full returns the display name used inside market hash names, e.g. "Field-Tested"
func (w Wear) Full() string {
	return wearFullNames[w]
}

// ParseWear accepts a short code ("FT"), a full name ("Field-Tested") or the
// loose spellings sites use ("Field Tested", "factory-new"). Unknown input
// yields WearNone.
func ParseWear(s string) Wear {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", " ", "", "_", "").Replace(key)
	if key == "" {
		return WearNone
	}

	for _, w := range Wears {
		if key == strings.ToLower(string(w)) {
			return w
		}
		full := strings.ToLower(strings.NewReplacer("-", "", " ", "").Replace(w.Full()))
		if key == full {
			return w
		}
	}
	return WearNone
}

// WearFromFloat returns the wear grade for a float value
func WearFromFloat(floatValue float64) Wear {
	switch {
	case floatValue >= 0 && floatValue < 0.07:
		return WearFN
	case floatValue >= 0.07 && floatValue < 0.15:
		return WearMW
	case floatValue >= 0.15 && floatValue < 0.38:
		return WearFT
	case floatValue >= 0.38 && floatValue < 0.45:
		return WearWW
	case floatValue >= 0.45 && floatValue <= 1.0:
		return WearBS
	default:
		return WearNone
	}
}
