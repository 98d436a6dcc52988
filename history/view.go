package history

import (
	"time"

	"github.com/rustyeddy/propdesk/market"
)

type CloseView struct {
	Units      *float64 `json:"units"`
	Price      *float64 `json:"price"`
	Time       *string  `json:"time"`
	RealizedPL *float64 `json:"realizedPL"`
}

// TradeView is the display and serialization form of a LogicalTrade.
type TradeView struct {
	TradeID        string      `json:"tradeID"`
	Instrument     string      `json:"instrument"`
	Side           Side        `json:"side,omitempty"`
	Status         Status      `json:"status"`
	OpenedAt       *string     `json:"openedAt"`
	ClosedAt       *string     `json:"closedAt"`
	OpenPrice      *float64    `json:"openPrice"`
	OpenUnits      float64     `json:"openUnits"`
	RemainingUnits float64     `json:"remainingUnits"`
	Closes         []CloseView `json:"closes"`
	RealizedPL     float64     `json:"realizedPL"`
	UnrealizedPL   *float64    `json:"unrealizedPL"`
	DurationMs     *int64      `json:"durationMs"`
}

func stamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func money(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := market.Round(*p, 2)
	return &v
}

// View rounds prices to the instrument's decimals and P&L to cents. This is
// the only place ledger figures are rounded.
func View(t LogicalTrade) TradeView {
	price := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		if in, err := market.ParseInstrument(t.Instrument); err == nil {
			v = in.RoundPrice(v)
		}
		return &v
	}

	v := TradeView{
		TradeID:        t.TradeID,
		Instrument:     t.Instrument,
		Side:           t.Side,
		Status:         t.Status,
		OpenedAt:       stamp(t.OpenedAt),
		ClosedAt:       stamp(t.ClosedAt),
		OpenPrice:      price(t.OpenPrice),
		OpenUnits:      t.OpenUnits,
		RemainingUnits: t.RemainingUnits,
		Closes:         make([]CloseView, 0, len(t.Closes)),
		RealizedPL:     market.Round(t.TotalRealizedPL, 2),
		UnrealizedPL:   money(t.UnrealizedPL),
	}
	for _, c := range t.Closes {
		v.Closes = append(v.Closes, CloseView{
			Units:      c.Units,
			Price:      price(c.Price),
			Time:       stamp(c.Time),
			RealizedPL: money(c.RealizedPL),
		})
	}
	if d, ok := t.Duration(); ok {
		ms := d.Milliseconds()
		v.DurationMs = &ms
	}
	return v
}

func Views(trades []LogicalTrade) []TradeView {
	out := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, View(t))
	}
	return out
}

// Stats summarizes a ledger. Totals keep full precision; use Rounded for
// display.
type Stats struct {
	Total        int     `json:"total_trades"`
	Open         int     `json:"open_trades"`
	Closed       int     `json:"closed_trades"`
	RealizedPL   float64 `json:"total_realized_pnl"`
	UnrealizedPL float64 `json:"total_unrealized_pnl"`
}

func Summarize(trades []LogicalTrade) Stats {
	var s Stats
	for _, t := range trades {
		s.Total++
		if t.Status == Open {
			s.Open++
		} else {
			s.Closed++
		}
		s.RealizedPL += t.TotalRealizedPL
		if t.UnrealizedPL != nil {
			s.UnrealizedPL += *t.UnrealizedPL
		}
	}
	return s
}

func (s Stats) Rounded() Stats {
	s.RealizedPL = market.Round(s.RealizedPL, 2)
	s.UnrealizedPL = market.Round(s.UnrealizedPL, 2)
	return s
}
