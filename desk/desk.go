// Package desk runs the two workflows the CLI exposes: sizing and placing a
// bracketed market order, and rebuilding trade history from the broker.
package desk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/journal"
	"github.com/rustyeddy/propdesk/market"
	"github.com/rustyeddy/propdesk/pkg/id"
	"github.com/rustyeddy/propdesk/risk"
)

var (
	ErrPriceUnavailable      = errors.New("price unavailable")
	ErrInputUnavailable      = errors.New("history input unavailable")
	ErrAccountNotProvisioned = errors.New("account not provisioned")
	ErrOrderRejected         = errors.New("order rejected")
	ErrPolicyViolation       = errors.New("policy violation")
)

// Store is the journal surface the desk writes through. It doubles as the
// session guard's trade log.
type Store interface {
	GetAccount(ctx context.Context, id string) (journal.Account, error)
	RecordOrder(ctx context.Context, o journal.OrderRecord) error
	RecordTrade(ctx context.Context, t journal.TradeRecord) error
	risk.TradeLog
}

type Options struct {
	PriceSource  market.PriceSource
	RiskFraction float64
	// StopPips overrides the tier stop when positive.
	StopPips float64
	// Policy is checked before submission when set.
	Policy         *risk.Policy
	EnforceSession bool

	Logger zerolog.Logger
	Now    func() time.Time
	NewID  func() string
}

type Desk struct {
	broker broker.Broker
	store  Store
	guard  risk.Guard

	source       market.PriceSource
	riskFraction float64
	stopPips     float64
	policy       *risk.Policy

	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

func New(b broker.Broker, s Store, o Options) *Desk {
	if o.PriceSource == "" {
		o.PriceSource = market.MidSource
	}
	if o.RiskFraction == 0 {
		o.RiskFraction = risk.DefaultRiskFraction
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = id.New
	}
	return &Desk{
		broker:       b,
		store:        s,
		guard:        risk.Guard{Log: s, Enforce: o.EnforceSession},
		source:       o.PriceSource,
		riskFraction: o.RiskFraction,
		stopPips:     o.StopPips,
		policy:       o.Policy,
		log:          o.Logger.With().Str("component", "desk").Logger(),
		now:          o.Now,
		newID:        o.NewID,
	}
}

type OrderRequest struct {
	AccountID  string
	Instrument string
	Direction  risk.Direction
	Reason     string
}

// OrderResult describes a filled order. Decision is nil when no policy ran.
type OrderResult struct {
	OrderID  string
	Account  journal.Account
	Quote    market.Quote
	Bracket  risk.OrderBracket
	Decision *risk.Decision
	Fill     broker.OrderFill
}

// Sizing is what Size returns: the bracket and the quote it was priced from.
type Sizing struct {
	Account journal.Account
	Quote   market.Quote
	Bracket risk.OrderBracket
}

// Size prices and sizes an order for a provisioned account without
// submitting anything.
func (d *Desk) Size(ctx context.Context, accountID, instrument string, dir risk.Direction) (Sizing, error) {
	acct, err := d.account(ctx, accountID)
	if err != nil {
		return Sizing{}, err
	}

	in, err := market.ParseInstrument(instrument)
	if err != nil {
		return Sizing{}, fmt.Errorf("%w: %v", risk.ErrInvalidRiskInput, err)
	}
	if !market.Known(in) {
		d.log.Warn().Str("instrument", in.String()).Msg("instrument not in metadata table")
	}

	q, err := d.broker.GetQuote(ctx, acct.BrokerAccountID, in.String())
	if err != nil {
		return Sizing{}, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, in, err)
	}
	price, err := q.ReferencePrice(d.source)
	if err != nil {
		return Sizing{}, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, in, err)
	}

	equity := acct.AccountSize
	if equity <= 0 {
		equity = acct.CurrentBalance
	}
	stop, reward := risk.TierRules(risk.ParseTier(acct.Tier))
	if d.stopPips > 0 {
		stop = d.stopPips
	}

	b, err := risk.ComputeBracket(risk.RiskParameters{
		Instrument:     in.String(),
		AccountEquity:  equity,
		RiskFraction:   d.riskFraction,
		StopPips:       stop,
		RewardPips:     reward,
		Direction:      dir,
		ReferencePrice: price,
	})
	if err != nil {
		return Sizing{}, err
	}
	return Sizing{Account: acct, Quote: q, Bracket: b}, nil
}

func (d *Desk) account(ctx context.Context, accountID string) (journal.Account, error) {
	acct, err := d.store.GetAccount(ctx, accountID)
	if errors.Is(err, journal.ErrNotFound) {
		return journal.Account{}, fmt.Errorf("%w: %s", ErrAccountNotProvisioned, accountID)
	}
	if err != nil {
		return journal.Account{}, fmt.Errorf("load account: %w", err)
	}
	if !acct.Provisioned() {
		return journal.Account{}, fmt.Errorf("%w: %s is %s", ErrAccountNotProvisioned, accountID, acct.Status)
	}
	return acct, nil
}

// PlaceOrder runs the session guard, sizes the order from a live quote,
// applies the policy and submits a fill-or-kill market order carrying its
// stop and target. Every attempt that reaches sizing is journaled.
func (d *Desk) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	now := d.now()
	if err := d.guard.Check(ctx, req.AccountID, now); err != nil {
		return OrderResult{}, err
	}

	sz, err := d.Size(ctx, req.AccountID, req.Instrument, req.Direction)
	if err != nil {
		return OrderResult{}, err
	}
	b := sz.Bracket
	res := OrderResult{OrderID: d.newID(), Account: sz.Account, Quote: sz.Quote, Bracket: b}

	rec := journal.OrderRecord{
		ID:         res.OrderID,
		AccountID:  req.AccountID,
		Instrument: b.Instrument,
		Side:       string(b.Direction),
		Units:      b.SignedUnits(),
		EntryPrice: b.EntryPriceUsed,
		StopLoss:   b.StopLossPrice,
		TakeProfit: b.TakeProfitPrice,
		RiskUSD:    b.RiskDollars,
		Reason:     req.Reason,
		CreatedAt:  now,
	}

	if err := d.check(ctx, &res); err != nil {
		rec.Status = journal.OrderFailed
		if errors.Is(err, ErrPolicyViolation) {
			rec.Status = journal.OrderRejected
		}
		rec.Error = err.Error()
		d.recordOrder(ctx, rec)
		return res, err
	}

	log := d.log.With().
		Str("order_id", res.OrderID).
		Str("instrument", b.Instrument).
		Int64("units", b.SignedUnits()).
		Logger()

	sl, tp := b.StopLossPrice, b.TakeProfitPrice
	fill, err := d.broker.SubmitMarketOrder(ctx, sz.Account.BrokerAccountID, broker.MarketOrderRequest{
		Instrument: b.Instrument,
		Units:      b.SignedUnits(),
		StopLoss:   &sl,
		TakeProfit: &tp,
		ClientID:   res.OrderID,
	})
	if err != nil {
		log.Error().Err(err).Msg("order submission failed")
		rec.Status = journal.OrderFailed
		rec.Error = err.Error()
		d.recordOrder(ctx, rec)
		return res, fmt.Errorf("submit order: %w", err)
	}
	res.Fill = fill
	rec.BrokerOrderID = fill.OrderID

	if !fill.Filled {
		log.Warn().Str("reject_reason", fill.RejectReason).Msg("order not filled")
		rec.Status = journal.OrderRejected
		rec.Error = fill.RejectReason
		d.recordOrder(ctx, rec)
		return res, fmt.Errorf("%w: %s", ErrOrderRejected, fill.RejectReason)
	}

	rec.Status = journal.OrderPlaced
	rec.TradeID = fill.TradeID
	if fill.Price > 0 {
		rec.EntryPrice = fill.Price
	}
	d.recordOrder(ctx, rec)

	if err := d.store.RecordTrade(ctx, journal.TradeRecord{
		ID:         d.newID(),
		AccountID:  req.AccountID,
		OrderID:    fill.OrderID,
		TradeID:    fill.TradeID,
		Instrument: b.Instrument,
		Side:       string(b.Direction),
		Units:      fill.Units,
		EntryPrice: rec.EntryPrice,
		StopLoss:   b.StopLossPrice,
		TakeProfit: b.TakeProfitPrice,
		Status:     "open",
		Timestamp:  now,
	}); err != nil {
		log.Error().Err(err).Str("trade_id", fill.TradeID).Msg("journal trade failed")
	}

	log.Info().
		Str("trade_id", fill.TradeID).
		Float64("price", fill.Price).
		Float64("stop_loss", b.StopLossPrice).
		Float64("take_profit", b.TakeProfitPrice).
		Msg("order filled")
	return res, nil
}

// check refuses brackets with no units and, when a policy is set, brackets
// the policy rejects. An unreadable broker account fails closed.
func (d *Desk) check(ctx context.Context, res *OrderResult) error {
	b := res.Bracket
	equity := res.Account.AccountSize
	if equity <= 0 {
		equity = res.Account.CurrentBalance
	}

	if d.policy == nil {
		if b.Units == 0 {
			dec := risk.Evaluate(risk.Policy{AllowApprox: true}, b, risk.AccountSnapshot{Equity: equity})
			res.Decision = &dec
			return violation(dec)
		}
		return nil
	}

	ba, err := d.broker.GetAccount(ctx, res.Account.BrokerAccountID)
	if err != nil {
		return fmt.Errorf("open trade count: %w", err)
	}
	dec := risk.Evaluate(*d.policy, b, risk.AccountSnapshot{Equity: equity, OpenTrades: ba.OpenTradeCount})
	res.Decision = &dec
	if !dec.Allowed {
		return violation(dec)
	}
	return nil
}

func violation(dec risk.Decision) error {
	msgs := make([]string, 0, len(dec.Violations))
	for _, v := range dec.Violations {
		msgs = append(msgs, v.Code+": "+v.Msg)
	}
	return fmt.Errorf("%w: %s", ErrPolicyViolation, strings.Join(msgs, "; "))
}

func (d *Desk) recordOrder(ctx context.Context, rec journal.OrderRecord) {
	if err := d.store.RecordOrder(ctx, rec); err != nil {
		d.log.Error().Err(err).Str("order_id", rec.ID).Str("status", rec.Status).Msg("journal order failed")
	}
}
