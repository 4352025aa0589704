package model

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatPrice renders a price with thousands separators.
// Prices >= 1 get two decimals, smaller ones four.
func FormatPrice(p decimal.Decimal) string {
	f := p.InexactFloat64()
	if p.Abs().LessThan(decimal.NewFromInt(1)) {
		return printer.Sprintf("%.4f", f)
	}
	return printer.Sprintf("%.2f", f)
}

// FormatUSD renders a price as dollars, e.g. "$50,500.00".
func FormatUSD(p decimal.Decimal) string {
	if p.IsNegative() {
		return "-$" + FormatPrice(p.Abs())
	}
	return "$" + FormatPrice(p)
}

// FormatPercent renders a signed percentage, e.g. "+1.25%".
func FormatPercent(p decimal.Decimal) string {
	s := p.StringFixed(2) + "%"
	if p.IsPositive() {
		return "+" + s
	}
	return s
}
