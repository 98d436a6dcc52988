package history

import (
	"math"
	"slices"
	"time"
)

// unitEpsilon absorbs float residue when fractional units are closed out.
const unitEpsilon = 1e-9

// builder accumulates LogicalTrades keyed by trade ID. Both input adapters
// drive it, which keeps their output structurally identical.
type builder struct {
	trades map[string]*LogicalTrade
	opened map[string]bool
}

func newBuilder() *builder {
	return &builder{
		trades: make(map[string]*LogicalTrade),
		opened: make(map[string]bool),
	}
}

func (b *builder) get(id string) *LogicalTrade {
	t, ok := b.trades[id]
	if !ok {
		t = &LogicalTrade{TradeID: id}
		b.trades[id] = t
	}
	return t
}

func (b *builder) has(id string) bool {
	_, ok := b.trades[id]
	return ok
}

// fill opens the trade on its first fill and scales it in afterwards,
// keeping OpenPrice as the size-weighted average entry.
func (b *builder) fill(id, instrument string, units float64, price *float64, at *time.Time) {
	t := b.get(id)
	qty := math.Abs(units)

	if !b.opened[id] {
		b.opened[id] = true
		t.Instrument = instrument
		t.Side = sideOf(units)
		t.OpenedAt = at
		t.OpenPrice = price
		t.OpenUnits = qty
		t.RemainingUnits = qty
		return
	}

	prev := t.OpenUnits
	total := prev + qty
	switch {
	case t.OpenPrice != nil && price != nil && total > 0:
		avg := (*t.OpenPrice*prev + *price*qty) / total
		t.OpenPrice = &avg
	case t.OpenPrice == nil:
		t.OpenPrice = price
	}
	t.OpenUnits = total
	t.RemainingUnits += qty
	if t.Instrument == "" {
		t.Instrument = instrument
	}
	if t.Side == "" {
		t.Side = sideOf(units)
	}
}

// close appends a leg, accumulates its P&L and shrinks the open size. The
// trade is stamped closed whenever nothing remains.
func (b *builder) close(id, instrument string, c Close) {
	t := b.get(id)
	if t.Instrument == "" {
		t.Instrument = instrument
	}
	t.Closes = append(t.Closes, c)
	if c.RealizedPL != nil {
		t.TotalRealizedPL += *c.RealizedPL
	}
	if c.Units != nil {
		t.RemainingUnits = math.Max(0, t.RemainingUnits-*c.Units)
		if t.RemainingUnits < unitEpsilon {
			t.RemainingUnits = 0
		}
	}
	if t.RemainingUnits == 0 {
		t.ClosedAt = c.Time
	}
}

func (b *builder) setRemaining(id string, units float64) {
	b.get(id).RemainingUnits = math.Abs(units)
}

func (b *builder) addRealized(id string, pl float64) {
	b.get(id).TotalRealizedPL += pl
}

// finish sets status, attaches unrealized P&L from the open snapshot to
// trades that still hold units, and orders the ledger newest activity first.
func (b *builder) finish(open []OpenTrade) []LogicalTrade {
	live := make(map[string]OpenTrade, len(open))
	for _, o := range open {
		if id := NormalizeID(o.ID); id != "" {
			live[id] = o
		}
	}

	out := make([]LogicalTrade, 0, len(b.trades))
	for _, t := range b.trades {
		tr := *t
		tr.Status = Closed
		if tr.RemainingUnits > 0 {
			tr.Status = Open
			if o, ok := live[tr.TradeID]; ok && o.UnrealizedPL != nil {
				u := *o.UnrealizedPL
				tr.UnrealizedPL = &u
			}
		}
		out = append(out, tr)
	}

	slices.SortFunc(out, func(a, b LogicalTrade) int {
		ta, okA := a.LastActivity()
		tb, okB := b.LastActivity()
		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case okA && okB && !ta.Equal(tb):
			return tb.Compare(ta)
		}
		return compareIDs(b.TradeID, a.TradeID)
	})
	return out
}
