// Package history rebuilds per-trade ledgers from broker data.
//
// Two inputs are supported: the raw transaction log, folded in time order,
// and the broker's pre-aggregated trade summaries. Both feed one builder so
// their output has the same shape.
package history

import (
	"errors"
	"time"
)

var (
	ErrUnresolvedTradeID = errors.New("trade identifier not found in any known field")
	ErrBadTime           = errors.New("transaction time missing or not ISO-8601")
	ErrMissingID         = errors.New("summary has no trade id")
)

// TradeRef is an entry of a transaction's tradeOpened or tradesClosed field.
type TradeRef struct {
	TradeID    string
	Units      *float64
	RealizedPL *float64
}

// RawTransaction is one broker transaction. Pointer fields are nil when the
// broker omitted them.
type RawTransaction struct {
	ID           string
	Type         string
	Reason       string
	TradeID      string
	Instrument   string
	Units        *float64
	Price        *float64
	Time         string
	PL           *float64
	TradeOpened  *TradeRef
	TradesClosed []TradeRef
}

// OpenTrade is an entry of the live open-trades snapshot.
type OpenTrade struct {
	ID           string
	Instrument   string
	CurrentUnits float64
	InitialUnits float64
	Price        *float64
	UnrealizedPL *float64
	RealizedPL   *float64
	OpenTime     string
}

// ClosedTrade is a broker summary of a fully closed trade.
type ClosedTrade struct {
	ID                string
	Instrument        string
	InitialUnits      float64
	Price             *float64
	AverageClosePrice *float64
	RealizedPL        *float64
	OpenTime          string
	CloseTime         string
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func sideOf(units float64) Side {
	if units >= 0 {
		return Buy
	}
	return Sell
}

type Status string

const (
	Open   Status = "open"
	Closed Status = "closed"
)

// Close is one closing leg. Units and RealizedPL are nil when the broker
// did not report them.
type Close struct {
	Units      *float64
	Price      *float64
	Time       *time.Time
	RealizedPL *float64
}

// LogicalTrade is the reconstructed life of one broker trade ID. OpenedAt
// and OpenPrice stay nil when no opening fill was seen.
type LogicalTrade struct {
	TradeID        string
	Instrument     string
	Side           Side
	OpenedAt       *time.Time
	ClosedAt       *time.Time
	OpenPrice      *float64
	OpenUnits      float64
	RemainingUnits float64
	Closes         []Close

	// Full precision; rounded only by View.
	TotalRealizedPL float64
	UnrealizedPL    *float64

	Status Status
}

// LastActivity is ClosedAt if set, else OpenedAt.
func (t LogicalTrade) LastActivity() (time.Time, bool) {
	if t.ClosedAt != nil {
		return *t.ClosedAt, true
	}
	if t.OpenedAt != nil {
		return *t.OpenedAt, true
	}
	return time.Time{}, false
}

func (t LogicalTrade) Duration() (time.Duration, bool) {
	if t.OpenedAt == nil || t.ClosedAt == nil {
		return 0, false
	}
	return t.ClosedAt.Sub(*t.OpenedAt), true
}

type Source string

const (
	FromTransactionLog Source = "transactions"
	FromTradeSummaries Source = "summaries"
)

// Skipped records an input event that could not be attributed to a trade.
type Skipped struct {
	TransactionID string
	Type          string
	Err           error
}

type Result struct {
	Trades  []LogicalTrade
	Skipped []Skipped
	Source  Source
}
