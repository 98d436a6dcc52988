// Package paper is an in-memory broker that fills market orders against
// quotes it is fed and keeps an OANDA-shaped transaction log.
package paper

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/history"
	"github.com/rustyeddy/propdesk/market"
)

var (
	ErrUnknownAccount     = errors.New("unknown account")
	ErrTradeNotFound      = errors.New("trade not found")
	ErrTradeAlreadyClosed = errors.New("trade already closed")
)

type Engine struct {
	mu     sync.Mutex
	acct   broker.Account
	quotes map[string]market.Quote
	trades map[string]*trade
	txs    []history.RawTransaction
	nextID int
	now    func() time.Time
}

var _ broker.Broker = (*Engine)(nil)

func NewEngine(acct broker.Account) *Engine {
	if acct.Currency == "" {
		acct.Currency = "USD"
	}
	return &Engine{
		acct:   acct,
		quotes: make(map[string]market.Quote),
		trades: make(map[string]*trade),
		now:    time.Now,
	}
}

// SetClock replaces the time source used when a quote carries no time.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *Engine) checkAccount(accountID string) error {
	if accountID != e.acct.ID {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, accountID)
	}
	return nil
}

func (e *Engine) id() string {
	e.nextID++
	return strconv.Itoa(e.nextID)
}

func (e *Engine) stamp(q market.Quote) time.Time {
	if !q.Time.IsZero() {
		return q.Time.UTC()
	}
	return e.now().UTC()
}

func (e *Engine) GetAccount(ctx context.Context, accountID string) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAccount(accountID); err != nil {
		return broker.Account{}, err
	}

	acct := e.acct
	acct.UnrealizedPL = 0
	acct.OpenTradeCount = 0
	for _, t := range e.trades {
		if !t.Open {
			continue
		}
		acct.OpenTradeCount++
		if pl, err := e.unrealizedLocked(t); err == nil {
			acct.UnrealizedPL += pl
		}
	}
	acct.NAV = acct.Balance + acct.UnrealizedPL
	return acct, nil
}

func (e *Engine) GetQuote(ctx context.Context, accountID, instrument string) (market.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAccount(accountID); err != nil {
		return market.Quote{}, err
	}
	in, err := market.ParseInstrument(instrument)
	if err != nil {
		return market.Quote{}, err
	}
	q, ok := e.quotes[in.String()]
	if !ok {
		return market.Quote{}, fmt.Errorf("%s: %w", in, market.ErrNoPrice)
	}
	return q, nil
}

// UpdateQuote stores q and closes open trades on that pair whose stop loss
// or take profit the new price reaches.
func (e *Engine) UpdateQuote(q market.Quote) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	in, err := market.ParseInstrument(q.Instrument)
	if err != nil {
		return err
	}
	q.Instrument = in.String()
	e.quotes[q.Instrument] = q

	for _, id := range e.openIDsLocked() {
		t := e.trades[id]
		if t.Instrument != in {
			continue
		}
		mark := t.mark(q)
		reason := ""
		switch {
		case t.hitStopLoss(mark):
			reason = "STOP_LOSS_ORDER"
		case t.hitTakeProfit(mark):
			reason = "TAKE_PROFIT_ORDER"
		}
		if reason != "" {
			if err := e.closeTradeLocked(t, mark, e.stamp(q), reason); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) SubmitMarketOrder(ctx context.Context, accountID string, req broker.MarketOrderRequest) (broker.OrderFill, error) {
	if err := req.Validate(); err != nil {
		return broker.OrderFill{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAccount(accountID); err != nil {
		return broker.OrderFill{}, err
	}

	in := market.MustInstrument(req.Instrument)
	orderID := e.id()
	fill := broker.OrderFill{OrderID: orderID, Instrument: in.String(), Units: req.Units}

	q, ok := e.quotes[in.String()]
	price := q.Ask
	if req.Units < 0 {
		price = q.Bid
	}
	if !ok || !q.Tradeable || price <= 0 {
		fill.RejectReason = "MARKET_HALTED"
		return fill, nil
	}

	at := e.stamp(q)
	txID := e.id()
	t := &trade{
		ID:         txID,
		Instrument: in,
		Units:      req.Units,
		EntryPrice: price,
		OpenTime:   at,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Open:       true,
	}
	e.trades[txID] = t

	units := float64(req.Units)
	e.txs = append(e.txs, history.RawTransaction{
		ID:          txID,
		Type:        "ORDER_FILL",
		Reason:      "MARKET_ORDER",
		Instrument:  in.String(),
		Units:       &units,
		Price:       &price,
		Time:        at.Format(time.RFC3339Nano),
		TradeOpened: &history.TradeRef{TradeID: txID, Units: &units},
	})

	fill.TradeID = txID
	fill.Price = price
	fill.Time = at
	fill.Filled = true
	return fill, nil
}

// CloseTrade closes an open trade at the current quote. Longs close on the
// bid and shorts on the ask.
func (e *Engine) CloseTrade(ctx context.Context, tradeID, reason string) error {
	if reason == "" {
		reason = "MARKET_ORDER_TRADE_CLOSE"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[tradeID]
	if !ok {
		return fmt.Errorf("close trade: %w: %q", ErrTradeNotFound, tradeID)
	}
	if !t.Open {
		return fmt.Errorf("close trade: %w: %q", ErrTradeAlreadyClosed, tradeID)
	}
	q, ok := e.quotes[t.Instrument.String()]
	if !ok {
		return fmt.Errorf("close trade: %s: %w", t.Instrument, market.ErrNoPrice)
	}
	return e.closeTradeLocked(t, t.mark(q), e.stamp(q), reason)
}

func (e *Engine) closeTradeLocked(t *trade, price float64, at time.Time, reason string) error {
	rate, err := market.QuoteToAccountRate(t.Instrument, e.acct.Currency, price)
	if err != nil {
		return fmt.Errorf("close trade %s: %w", t.ID, err)
	}
	pl := t.pl(price, rate)

	t.ClosePrice = price
	t.CloseTime = at
	t.RealizedPL = pl
	t.Open = false
	e.acct.Balance += pl

	units := float64(-t.Units)
	e.txs = append(e.txs, history.RawTransaction{
		ID:           e.id(),
		Type:         "TRADE_CLOSE",
		Reason:       reason,
		TradeID:      t.ID,
		Instrument:   t.Instrument.String(),
		Units:        &units,
		Price:        &price,
		Time:         at.Format(time.RFC3339Nano),
		PL:           &pl,
		TradesClosed: []history.TradeRef{{TradeID: t.ID, Units: &units, RealizedPL: &pl}},
	})
	return nil
}

func (e *Engine) unrealizedLocked(t *trade) (float64, error) {
	q, ok := e.quotes[t.Instrument.String()]
	if !ok {
		return 0, market.ErrNoPrice
	}
	mark := t.mark(q)
	rate, err := market.QuoteToAccountRate(t.Instrument, e.acct.Currency, mark)
	if err != nil {
		return 0, err
	}
	return t.pl(mark, rate), nil
}

// openIDsLocked returns open trade IDs in opening order.
func (e *Engine) openIDsLocked() []string {
	var ids []string
	for id, t := range e.trades {
		if t.Open {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		x, _ := strconv.Atoi(a)
		y, _ := strconv.Atoi(b)
		return x - y
	})
	return ids
}
