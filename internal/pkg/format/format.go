// Package format renders numbers for logs and chart labels.
package format

import (
	"github.com/shopspring/decimal"
)

// Float renders v with at most places decimal digits, trailing zeros trimmed.
// Prices spanning BTC (5 figures) and shitcoins (sub-cent) both stay readable.
func Float(v float64, places int) string {
	if places < 0 {
		places = 0
	}
	d := decimal.NewFromFloat(v).Round(int32(places))
	return d.String()
}

// Pct renders a ratio as a signed percentage with two decimals.
func Pct(ratio float64) string {
	d := decimal.NewFromFloat(ratio * 100).Round(2)
	if d.Sign() >= 0 {
		return "+" + d.String() + "%"
	}
	return d.String() + "%"
}
