package history

import (
	"math"
	"time"
)

func optionalTime(s string) *time.Time {
	t, err := parseTime(s)
	if err != nil {
		return nil
	}
	return &t
}

// FromSummaries builds the ledger from the broker's closed-trade summaries
// and the open-trades snapshot without replaying transactions. A closed
// summary becomes one opening fill and one closing leg. Open entries with
// no remaining units, or whose ID already appeared as closed, are ignored.
func FromSummaries(closed []ClosedTrade, open []OpenTrade) Result {
	res := Result{Source: FromTradeSummaries}
	b := newBuilder()

	for _, c := range closed {
		id := NormalizeID(c.ID)
		if id == "" {
			res.Skipped = append(res.Skipped, Skipped{Type: "CLOSED_TRADE", Err: ErrMissingID})
			continue
		}
		qty := math.Abs(c.InitialUnits)
		b.fill(id, c.Instrument, c.InitialUnits, c.Price, optionalTime(c.OpenTime))

		leg := Close{
			Price:      c.AverageClosePrice,
			Time:       optionalTime(c.CloseTime),
			RealizedPL: c.RealizedPL,
		}
		if qty > 0 {
			leg.Units = &qty
		}
		b.close(id, c.Instrument, leg)
	}

	for _, o := range open {
		id := NormalizeID(o.ID)
		if id == "" {
			res.Skipped = append(res.Skipped, Skipped{Type: "OPEN_TRADE", Err: ErrMissingID})
			continue
		}
		if o.CurrentUnits == 0 || b.has(id) {
			continue
		}

		qty := math.Abs(o.InitialUnits)
		if qty == 0 {
			qty = math.Abs(o.CurrentUnits)
		}
		b.fill(id, o.Instrument, math.Copysign(qty, o.CurrentUnits), o.Price, optionalTime(o.OpenTime))
		b.setRemaining(id, o.CurrentUnits)
		if o.RealizedPL != nil {
			b.addRealized(id, *o.RealizedPL)
		}
	}

	res.Trades = b.finish(open)
	return res
}

// Input is everything the history view may have fetched. Summaries are used
// only when SummariesAvailable is set.
type Input struct {
	Transactions       []RawTransaction
	OpenTrades         []OpenTrade
	ClosedTrades       []ClosedTrade
	SummariesAvailable bool
}

// Build prefers the summary path and falls back to folding transactions
// when summaries are unavailable or produce nothing.
func Build(in Input) Result {
	if in.SummariesAvailable {
		if res := FromSummaries(in.ClosedTrades, in.OpenTrades); len(res.Trades) > 0 {
			return res
		}
	}
	return Reconstruct(in.Transactions, in.OpenTrades)
}
