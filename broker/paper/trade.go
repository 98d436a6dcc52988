package paper

import (
	"time"

	"github.com/rustyeddy/propdesk/market"
)

type trade struct {
	ID         string
	Instrument market.Instrument
	Units      int64
	EntryPrice float64
	OpenTime   time.Time

	StopLoss   *float64
	TakeProfit *float64

	ClosePrice float64
	CloseTime  time.Time
	RealizedPL float64 // account currency
	Open       bool
}

// mark is the price the position would close at.
func (t *trade) mark(q market.Quote) float64 {
	if t.Units > 0 {
		return q.Bid
	}
	return q.Ask
}

func (t *trade) hitStopLoss(price float64) bool {
	if t.StopLoss == nil {
		return false
	}
	if t.Units > 0 {
		return price <= *t.StopLoss
	}
	return price >= *t.StopLoss
}

func (t *trade) hitTakeProfit(price float64) bool {
	if t.TakeProfit == nil {
		return false
	}
	if t.Units > 0 {
		return price >= *t.TakeProfit
	}
	return price <= *t.TakeProfit
}

func (t *trade) pl(price, quoteToAccount float64) float64 {
	return float64(t.Units) * (price - t.EntryPrice) * quoteToAccount
}
