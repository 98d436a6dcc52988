package market

import (
	"github.com/shopspring/decimal"
)

// RoundPrice rounds p to the pair's display precision.
func (in Instrument) RoundPrice(p float64) float64 {
	return Round(p, in.PriceDecimals())
}

// FormatPrice renders p with exactly PriceDecimals digits, the form OANDA
// expects in order bodies.
func (in Instrument) FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(in.PriceDecimals())
}

// Round rounds x half away from zero to places digits. Values are rounded
// once, at presentation, never between accumulation steps.
func Round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
