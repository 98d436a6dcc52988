package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/propdesk/history"
	"github.com/rustyeddy/propdesk/market"
)

var ErrBadOrder = errors.New("invalid order request")

type Pricer interface {
	GetQuote(ctx context.Context, accountID, instrument string) (market.Quote, error)
}

// TradeSource supplies the inputs history reconstruction works from.
type TradeSource interface {
	OpenTrades(ctx context.Context, accountID string) ([]history.OpenTrade, error)
	ClosedTrades(ctx context.Context, accountID string) ([]history.ClosedTrade, error)
	Transactions(ctx context.Context, accountID string, q TransactionQuery) ([]history.RawTransaction, error)
}

type OrderSubmitter interface {
	SubmitMarketOrder(ctx context.Context, accountID string, req MarketOrderRequest) (OrderFill, error)
}

type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (Account, error)
}

type Broker interface {
	Pricer
	TradeSource
	OrderSubmitter
	AccountReader
}

type Account struct {
	ID              string
	Currency        string
	Balance         float64
	NAV             float64
	UnrealizedPL    float64
	MarginUsed      float64
	MarginAvailable float64
	OpenTradeCount  int
}

// TransactionQuery bounds a transaction listing. Zero values mean the
// broker's defaults.
type TransactionQuery struct {
	From     time.Time
	To       time.Time
	PageSize int
}

// MarketOrderRequest is a fill-or-kill market order with optional
// protective levels attached on fill. Units are signed: positive buys.
type MarketOrderRequest struct {
	Instrument string
	Units      int64
	StopLoss   *float64
	TakeProfit *float64
	ClientID   string
}

func (r MarketOrderRequest) Validate() error {
	in, err := market.ParseInstrument(r.Instrument)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadOrder, err)
	}
	if r.Units == 0 {
		return fmt.Errorf("%w: zero units", ErrBadOrder)
	}
	if r.StopLoss != nil && r.TakeProfit != nil {
		sl, tp := *r.StopLoss, *r.TakeProfit
		if (r.Units > 0 && sl >= tp) || (r.Units < 0 && sl <= tp) {
			return fmt.Errorf("%w: stop %s and target %s on wrong sides", ErrBadOrder, in.FormatPrice(sl), in.FormatPrice(tp))
		}
	}
	return nil
}

// OrderFill is the broker's answer to a market order. A cancelled or
// rejected order has Filled false and a RejectReason; that is not an error.
type OrderFill struct {
	OrderID      string
	TradeID      string
	Instrument   string
	Units        int64
	Price        float64
	Time         time.Time
	Filled       bool
	RejectReason string
}
