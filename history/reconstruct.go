package history

import (
	"cmp"
	"slices"
	"time"
)

type event struct {
	tx      RawTransaction
	kind    kind
	at      time.Time
	tradeID string
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrBadTime
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrBadTime
	}
	return t.UTC(), nil
}

// comparePtr orders absent values before present ones.
func comparePtr(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// eventUnits is the resolved size the fold will use for the event.
func eventUnits(ev event) *float64 {
	if ev.kind == fillEvent {
		u := fillUnits(ev.tx)
		return &u
	}
	return closeUnits(ev.tx)
}

// eventOrder is time ascending. Equal times fall back to transaction ID,
// fills before closes, trade ID, instrument, resolved size, price, then
// realized P&L. Events equal on all of these fold to the same result in
// either order.
func eventOrder(a, b event) int {
	if c := a.at.Compare(b.at); c != 0 {
		return c
	}
	if c := compareIDs(a.tx.ID, b.tx.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := compareIDs(a.tradeID, b.tradeID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.tx.Instrument, b.tx.Instrument); c != 0 {
		return c
	}
	if c := comparePtr(eventUnits(a), eventUnits(b)); c != 0 {
		return c
	}
	if c := comparePtr(positive(a.tx.Price), positive(b.tx.Price)); c != 0 {
		return c
	}
	if a.kind == closeEvent {
		return comparePtr(closePL(a.tx), closePL(b.tx))
	}
	return 0
}

// Reconstruct folds the transaction log into one LogicalTrade per trade ID
// and enriches still-open trades from the open-trades snapshot. Events of
// other types are ignored; fills and closes that cannot be placed are
// reported in Skipped.
func Reconstruct(txs []RawTransaction, open []OpenTrade) Result {
	res := Result{Source: FromTransactionLog}

	events := make([]event, 0, len(txs))
	for _, tx := range txs {
		k := kindOf(tx)
		if k == otherEvent {
			continue
		}
		at, err := parseTime(tx.Time)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{TransactionID: tx.ID, Type: tx.Type, Err: err})
			continue
		}
		id, _, err := ResolveTradeID(tx)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{TransactionID: tx.ID, Type: tx.Type, Err: err})
			continue
		}
		events = append(events, event{tx: tx, kind: k, at: at, tradeID: id})
	}
	slices.SortStableFunc(events, eventOrder)

	b := newBuilder()
	for _, ev := range events {
		at := ev.at
		switch ev.kind {
		case fillEvent:
			b.fill(ev.tradeID, ev.tx.Instrument, fillUnits(ev.tx), positive(ev.tx.Price), &at)
		case closeEvent:
			b.close(ev.tradeID, ev.tx.Instrument, Close{
				Units:      closeUnits(ev.tx),
				Price:      positive(ev.tx.Price),
				Time:       &at,
				RealizedPL: closePL(ev.tx),
			})
		}
	}

	res.Trades = b.finish(open)
	return res
}

// positive treats a zero price as absent.
func positive(p *float64) *float64 {
	if p == nil || *p == 0 {
		return nil
	}
	return p
}
