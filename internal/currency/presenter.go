// Package currency formats USD amounts for display in a user's currency.
package currency

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrency = "USD"

type symbol struct {
	sign   string
	suffix bool // Written after the amount, separated by a space
}

var symbols = map[string]symbol{
	"USD": {sign: "$"},
	"EUR": {sign: "€"},
	"GBP": {sign: "£"},
	"RUB": {sign: "₽", suffix: true},
	"UAH": {sign: "₴"},
	"PLN": {sign: "zł", suffix: true},
	"CZK": {sign: "Kč", suffix: true},
	"SEK": {sign: "kr", suffix: true},
	"NOK": {sign: "kr", suffix: true},
	"DKK": {sign: "kr", suffix: true},
	"CHF": {sign: "CHF "},
	"TRY": {sign: "₺"},
	"CNY": {sign: "¥"},
	"JPY": {sign: "¥"},
	"KRW": {sign: "₩"},
	"INR": {sign: "₹"},
	"KZT": {sign: "₸", suffix: true},
	"BRL": {sign: "R$"},
	"CAD": {sign: "C$"},
	"AUD": {sign: "A$"},
	"NZD": {sign: "NZ$"},
	"MXN": {sign: "MX$"},
	"ARS": {sign: "ARS$"},
	"IRR": {sign: "﷼", suffix: true},
}

// Presenter formats amounts. It holds no state beyond the static symbol table.
type Presenter struct{}

// NewPresenter creates a presenter
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Supported reports whether code has a symbol
func (p *Presenter) Supported(code string) bool {
	_, ok := symbols[normalizeCode(code)]
	return ok
}

// Symbol returns the display symbol for code, or the code itself when unknown
func (p *Presenter) Symbol(code string) string {
	code = normalizeCode(code)
	if s, ok := symbols[code]; ok {
		return strings.TrimSpace(s.sign)
	}
	return code
}

// Format converts usd at rate and renders it in code, e.g. "$1,234.50" or
// "12.30 zł". A non-positive rate is treated as 1 (USD passthrough).
func (p *Presenter) Format(usd float64, code string, rate float64) string {
	amount := convert(usd, rate)
	if amount.IsNegative() {
		return "-" + render(amount.Abs(), code)
	}
	return render(amount, code)
}

// FormatSigned is Format with an explicit leading "+" for gains and "-" for losses
func (p *Presenter) FormatSigned(usd float64, code string, rate float64) string {
	amount := convert(usd, rate)
	switch {
	case amount.IsPositive():
		return "+" + render(amount, code)
	case amount.IsNegative():
		return "-" + render(amount.Abs(), code)
	default:
		return render(amount, code)
	}
}

func convert(usd, rate float64) decimal.Decimal {
	if !finite(usd) {
		usd = 0
	}
	if !finite(rate) || rate <= 0 {
		rate = 1
	}
	return decimal.NewFromFloat(usd).Mul(decimal.NewFromFloat(rate)).Round(2)
}

func render(amount decimal.Decimal, code string) string {
	number := message.NewPrinter(language.English).Sprintf("%.2f", amount.InexactFloat64())

	code = normalizeCode(code)
	s, ok := symbols[code]
	if !ok {
		return number + " " + code
	}
	if s.suffix {
		return number + " " + s.sign
	}
	return s.sign + number
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
