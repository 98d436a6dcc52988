package risk

// EUR_USD → quote = USD → pip value per unit = pip size
// USD_JPY → quote = JPY → pip value per unit = pip size / USDJPY price

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/propdesk/market"
)

var ErrInvalidRiskInput = errors.New("invalid risk input")

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy, "LONG":
		return Buy, nil
	case Sell, "SHORT":
		return Sell, nil
	}
	return "", fmt.Errorf("%w: direction %q (want BUY|SELL)", ErrInvalidRiskInput, s)
}

// Sign is +1 for BUY and -1 for SELL.
func (d Direction) Sign() int64 {
	if d == Sell {
		return -1
	}
	return 1
}

const crossRateNote = "Approximate: quote currency is not USD; please supply conversion rate for accurate sizing."

// RiskParameters are the inputs to ComputeBracket.
type RiskParameters struct {
	Instrument     string
	AccountEquity  float64 // account size or current balance, USD
	RiskFraction   float64 // 0.0025 = 0.25% of equity
	StopPips       float64
	RewardPips     float64
	Direction      Direction
	ReferencePrice float64

	// QuoteToAccount converts the quote currency of a cross pair into USD.
	// Zero keeps the pip-size approximation and flags the result.
	QuoteToAccount float64
}

// OrderBracket is the sized order: protective levels plus an unsigned unit
// count. Prices are rounded to the instrument's decimals.
type OrderBracket struct {
	Instrument      string
	Direction       Direction
	EntryPriceUsed  float64
	StopLossPrice   float64
	TakeProfitPrice float64
	Units           uint64
	Lots            float64
	RiskDollars     float64
	PipSize         float64
	PipValuePerUnit float64
	StopPips        float64
	RewardPips      float64

	Approx bool
	Note   string
}

// SignedUnits applies the direction to Units, the form the broker expects.
func (b OrderBracket) SignedUnits() int64 {
	return b.Direction.Sign() * int64(b.Units)
}

// LossAtStop is the dollar loss if the stop fills at its level.
func (b OrderBracket) LossAtStop() float64 {
	return float64(b.Units) * b.StopPips * b.PipValuePerUnit
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRiskInput, fmt.Sprintf(format, args...))
}

// ComputeBracket sizes one order so that the loss at the stop never exceeds
// AccountEquity × RiskFraction. It has no side effects.
func ComputeBracket(p RiskParameters) (OrderBracket, error) {
	in, err := market.ParseInstrument(p.Instrument)
	if err != nil {
		return OrderBracket{}, invalid("%v", err)
	}
	switch {
	case !finite(p.AccountEquity) || p.AccountEquity <= 0:
		return OrderBracket{}, invalid("account equity must be positive, got %v", p.AccountEquity)
	case !finite(p.ReferencePrice) || p.ReferencePrice <= 0:
		return OrderBracket{}, invalid("reference price missing or not finite")
	case !finite(p.StopPips) || p.StopPips <= 0:
		return OrderBracket{}, invalid("stop pips must be positive, got %v", p.StopPips)
	case !finite(p.RewardPips) || p.RewardPips < 0:
		return OrderBracket{}, invalid("reward pips must not be negative, got %v", p.RewardPips)
	case !finite(p.RiskFraction) || p.RiskFraction < 0 || p.RiskFraction > 1:
		return OrderBracket{}, invalid("risk fraction must be within [0, 1], got %v", p.RiskFraction)
	case !finite(p.QuoteToAccount) || p.QuoteToAccount < 0:
		return OrderBracket{}, invalid("quote-to-account rate must not be negative")
	}
	if p.Direction != Buy && p.Direction != Sell {
		return OrderBracket{}, invalid("direction %q (want BUY|SELL)", p.Direction)
	}

	pip := in.PipSize()
	b := OrderBracket{
		Instrument:     in.String(),
		Direction:      p.Direction,
		EntryPriceUsed: p.ReferencePrice,
		RiskDollars:    p.AccountEquity * p.RiskFraction,
		PipSize:        pip,
		StopPips:       p.StopPips,
		RewardPips:     p.RewardPips,
	}

	switch {
	case in.Quote == "USD":
		b.PipValuePerUnit = pip
	case in.JPYQuoted():
		b.PipValuePerUnit = pip / p.ReferencePrice
	case p.QuoteToAccount > 0:
		b.PipValuePerUnit = pip * p.QuoteToAccount
	default:
		// Assumes the quote leg is USD. Downstream limits were tuned against
		// this figure, so it is flagged rather than corrected.
		b.PipValuePerUnit = pip
		b.Approx = true
		b.Note = crossRateNote
	}

	units := math.Floor(b.RiskDollars / (b.StopPips * b.PipValuePerUnit))
	// floor of an inexact quotient can land one unit over budget
	if units > 0 && units*b.StopPips*b.PipValuePerUnit > b.RiskDollars {
		units--
	}
	// signed units must fit an int64
	if !finite(units) || units >= math.MaxInt64 {
		return OrderBracket{}, invalid("position of %.0f units is too large", units)
	}
	b.Units = uint64(units)
	b.Lots = float64(b.Units) / 100000

	stop := p.StopPips * pip
	target := p.RewardPips * pip
	if p.Direction == Buy {
		b.StopLossPrice = in.RoundPrice(p.ReferencePrice - stop)
		b.TakeProfitPrice = in.RoundPrice(p.ReferencePrice + target)
	} else {
		b.StopLossPrice = in.RoundPrice(p.ReferencePrice + stop)
		b.TakeProfitPrice = in.RoundPrice(p.ReferencePrice - target)
	}

	return b, nil
}
