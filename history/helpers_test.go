package history

import (
	"time"
)

func f(x float64) *float64 { return &x }

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func at(minutes int) string {
	return t0.Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339Nano)
}

func tm(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func openFill(txID, tradeID, instrument string, units, price float64, minute int) RawTransaction {
	return RawTransaction{
		ID:          txID,
		Type:        "ORDER_FILL",
		Instrument:  instrument,
		Units:       f(units),
		Price:       f(price),
		Time:        at(minute),
		TradeOpened: &TradeRef{TradeID: tradeID, Units: f(units)},
	}
}

func tradeClose(txID, tradeID, instrument string, units, price, pl float64, minute int) RawTransaction {
	return RawTransaction{
		ID:         txID,
		Type:       "TRADE_CLOSE",
		TradeID:    tradeID,
		Instrument: instrument,
		Units:      f(units),
		Price:      f(price),
		PL:         f(pl),
		Time:       at(minute),
	}
}

func byID(trades []LogicalTrade) map[string]LogicalTrade {
	out := make(map[string]LogicalTrade, len(trades))
	for _, t := range trades {
		out[t.TradeID] = t
	}
	return out
}
