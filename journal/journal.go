// journal/journal.go
package journal

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Account status values. Only active accounts may trade.
const (
	AccountPending = "pending"
	AccountActive  = "active"
)

// Account is a desk trading account bound to a broker account.
type Account struct {
	ID              string
	BrokerAccountID string
	Currency        string
	Tier            string
	AccountSize     float64
	CurrentBalance  float64
	Status          string
	UpdatedAt       time.Time
}

// Provisioned reports whether the account may place orders.
func (a Account) Provisioned() bool {
	return a.Status == AccountActive && a.BrokerAccountID != ""
}

// Order status values.
const (
	OrderPlaced   = "placed"
	OrderRejected = "rejected"
	OrderFailed   = "failed"
)

// OrderRecord is one order attempt, successful or not.
type OrderRecord struct {
	ID            string
	AccountID     string
	Instrument    string
	Side          string
	Units         int64
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	RiskUSD       float64
	Status        string
	BrokerOrderID string
	TradeID       string
	Reason        string
	Error         string
	CreatedAt     time.Time
}

// TradeRecord is a filled order. Its Timestamp is what the session limit
// counts.
type TradeRecord struct {
	ID         string
	AccountID  string
	OrderID    string
	TradeID    string
	Instrument string
	Side       string
	Units      int64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Status     string
	Timestamp  time.Time
}

type Journal interface {
	GetAccount(ctx context.Context, id string) (Account, error)
	RecordOrder(ctx context.Context, o OrderRecord) error
	RecordTrade(ctx context.Context, t TradeRecord) error
	FirstTradeBetween(ctx context.Context, accountID string, start, end time.Time) (time.Time, bool, error)
	Close() error
}
