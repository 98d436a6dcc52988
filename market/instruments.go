// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadInstrument = errors.New("malformed instrument")

// Instrument is a currency pair such as EUR_USD. Everything about it is
// derived from the identifier.
type Instrument struct {
	Base  string
	Quote string
}

// ParseInstrument accepts "EUR_USD" or "EUR/USD" (any case) and returns the
// normalized pair.
func ParseInstrument(s string) (Instrument, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '/' })
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Instrument{}, fmt.Errorf("%w: %q", ErrBadInstrument, s)
	}
	return Instrument{Base: parts[0], Quote: parts[1]}, nil
}

// MustInstrument is ParseInstrument for literals.
func MustInstrument(s string) Instrument {
	in, err := ParseInstrument(s)
	if err != nil {
		panic(err)
	}
	return in
}

func (in Instrument) String() string {
	return in.Base + "_" + in.Quote
}

func (in Instrument) JPYQuoted() bool {
	return in.Quote == "JPY"
}

// PipLocation is the power of ten of one pip: -2 for JPY-quoted pairs, -4 otherwise.
func (in Instrument) PipLocation() int {
	if in.JPYQuoted() {
		return -2
	}
	return -4
}

func (in Instrument) PipSize() float64 {
	if in.JPYQuoted() {
		return 0.01
	}
	return 0.0001
}

// PriceDecimals is the display precision OANDA uses for the pair.
func (in Instrument) PriceDecimals() int32 {
	if in.JPYQuoted() {
		return 3
	}
	return 5
}

type InstrumentMeta struct {
	Name                string
	BaseCurrency        string
	QuoteCurrency       string
	PipLocation         int
	TradeUnitsPrecision int
	MinimumTradeSize    float64
	MarginRate          float64
}

// Instruments lists the pairs the desk offers. Sizing works for any
// well-formed pair; this table is used to warn about unusual ones.
var Instruments = map[string]InstrumentMeta{}

func init() {
	for _, name := range []string{
		"EUR_USD", "GBP_USD", "AUD_USD", "NZD_USD",
		"USD_JPY", "EUR_JPY", "GBP_JPY",
		"USD_CAD", "USD_CHF", "EUR_GBP",
	} {
		in := MustInstrument(name)
		Instruments[name] = InstrumentMeta{
			Name:             name,
			BaseCurrency:     in.Base,
			QuoteCurrency:    in.Quote,
			PipLocation:      in.PipLocation(),
			MinimumTradeSize: 1,
			MarginRate:       0.02,
		}
	}
}

// Known reports whether the pair is in the Instruments table.
func Known(in Instrument) bool {
	_, ok := Instruments[in.String()]
	return ok
}
