package history

import (
	"math"
	"strconv"
	"strings"
)

type kind int

const (
	otherEvent kind = iota
	fillEvent
	closeEvent
)

var eventKinds = map[string]kind{
	"ORDER_FILL":              fillEvent,
	"OrderFillTransaction":    fillEvent,
	"MARKET_ORDER":            fillEvent,
	"MARKET_ORDER_TRADE_OPEN": fillEvent,
	"TRADE_CLOSE":             closeEvent,
	"TradeCloseTransaction":   closeEvent,
}

func kindOf(tx RawTransaction) kind {
	return eventKinds[tx.Type]
}

// NormalizeID strips whitespace and zero-width characters that show up in
// copy-pasted broker identifiers.
func NormalizeID(id string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			return -1
		}
		return r
	}, id))
}

type idField struct {
	name string
	get  func(RawTransaction) string
}

// tradeIDFields is the lookup order for the trade a transaction affects.
// Subtypes disagree on where the identifier lives.
var tradeIDFields = []idField{
	{"tradeOpened.tradeID", func(tx RawTransaction) string {
		if tx.TradeOpened == nil {
			return ""
		}
		return tx.TradeOpened.TradeID
	}},
	{"tradeID", func(tx RawTransaction) string { return tx.TradeID }},
	{"tradesClosed[0].tradeID", func(tx RawTransaction) string {
		if len(tx.TradesClosed) == 0 {
			return ""
		}
		return tx.TradesClosed[0].TradeID
	}},
}

// ResolveTradeID returns the first non-empty identifier and the field it
// came from.
func ResolveTradeID(tx RawTransaction) (string, string, error) {
	for _, f := range tradeIDFields {
		if id := NormalizeID(f.get(tx)); id != "" {
			return id, f.name, nil
		}
	}
	return "", "", ErrUnresolvedTradeID
}

func fillUnits(tx RawTransaction) float64 {
	if tx.Units != nil {
		return *tx.Units
	}
	if tx.TradeOpened != nil && tx.TradeOpened.Units != nil {
		return *tx.TradeOpened.Units
	}
	return 0
}

// closeUnits is nil when no field carries a non-zero count.
func closeUnits(tx RawTransaction) *float64 {
	var u float64
	switch {
	case tx.Units != nil:
		u = *tx.Units
	case len(tx.TradesClosed) > 0 && tx.TradesClosed[0].Units != nil:
		u = *tx.TradesClosed[0].Units
	}
	if u == 0 || math.IsNaN(u) {
		return nil
	}
	u = math.Abs(u)
	return &u
}

func closePL(tx RawTransaction) *float64 {
	if tx.PL != nil {
		return tx.PL
	}
	if len(tx.TradesClosed) > 0 {
		return tx.TradesClosed[0].RealizedPL
	}
	return nil
}

// compareIDs orders numeric identifiers numerically and anything else
// lexically.
func compareIDs(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
