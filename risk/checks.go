package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/propdesk/market"
)

// PlannedRiskUSD computes absolute $ risk if stop is hit.
func PlannedRiskUSD(units, entry, stop, quoteToAccountRate float64) float64 {
	return units * math.Abs(entry-stop) * quoteToAccountRate
}

// RR is reward over risk measured from entry.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

func RiskPct(plannedRiskUSD, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRiskUSD / equity
}

// Evaluate checks a computed bracket against the policy. Planned risk is
// recomputed from the rounded levels rather than trusted from the bracket.
func Evaluate(p Policy, b OrderBracket, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	if b.Units == 0 {
		d.add("NO_UNITS", fmt.Sprintf("risk budget $%.2f buys no units at %.1f pips", b.RiskDollars, b.StopPips))
		return d
	}

	rate := 1.0
	if in, err := market.ParseInstrument(b.Instrument); err == nil {
		r, err := market.QuoteToAccountRate(in, "USD", b.EntryPriceUsed)
		switch {
		case err == nil:
			rate = r
		case errors.Is(err, market.ErrCrossRate) && b.PipSize > 0:
			rate = b.PipValuePerUnit / b.PipSize
		}
	}

	d.PlannedRiskUSD = PlannedRiskUSD(float64(b.Units), b.EntryPriceUsed, b.StopLossPrice, rate)
	d.PlannedRiskPct = RiskPct(d.PlannedRiskUSD, acct.Equity)
	d.PlannedRR = RR(b.EntryPriceUsed, b.StopLossPrice, b.TakeProfitPrice)

	if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*d.PlannedRiskPct, 100*p.MaxRiskPct))
	}
	if p.MinRR > 0 && d.PlannedRR < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}
	if p.MaxOpenTrades > 0 && acct.OpenTrades >= p.MaxOpenTrades {
		d.add("TOO_MANY_OPEN_TRADES",
			fmt.Sprintf("open trades %d >= max %d", acct.OpenTrades, p.MaxOpenTrades))
	}
	if b.Approx && !p.AllowApprox {
		d.add("APPROX_SIZING", b.Note)
	}

	return d
}
