package paper

import (
	"context"
	"time"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/history"
)

func (e *Engine) OpenTrades(ctx context.Context, accountID string) ([]history.OpenTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAccount(accountID); err != nil {
		return nil, err
	}

	var out []history.OpenTrade
	for _, id := range e.openIDsLocked() {
		t := e.trades[id]
		price := t.EntryPrice
		ot := history.OpenTrade{
			ID:           t.ID,
			Instrument:   t.Instrument.String(),
			CurrentUnits: float64(t.Units),
			InitialUnits: float64(t.Units),
			Price:        &price,
			OpenTime:     t.OpenTime.Format(time.RFC3339Nano),
		}
		if pl, err := e.unrealizedLocked(t); err == nil {
			ot.UnrealizedPL = &pl
		}
		out = append(out, ot)
	}
	return out, nil
}

func (e *Engine) ClosedTrades(ctx context.Context, accountID string) ([]history.ClosedTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAccount(accountID); err != nil {
		return nil, err
	}

	var out []history.ClosedTrade
	for _, t := range e.trades {
		if t.Open {
			continue
		}
		entry, exit, pl := t.EntryPrice, t.ClosePrice, t.RealizedPL
		out = append(out, history.ClosedTrade{
			ID:                t.ID,
			Instrument:        t.Instrument.String(),
			InitialUnits:      float64(t.Units),
			Price:             &entry,
			AverageClosePrice: &exit,
			RealizedPL:        &pl,
			OpenTime:          t.OpenTime.Format(time.RFC3339Nano),
			CloseTime:         t.CloseTime.Format(time.RFC3339Nano),
		})
	}
	return out, nil
}

// Transactions returns the log in ID order, bounded by q.From and q.To when
// they are set.
func (e *Engine) Transactions(ctx context.Context, accountID string, q broker.TransactionQuery) ([]history.RawTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAccount(accountID); err != nil {
		return nil, err
	}

	var out []history.RawTransaction
	for _, tx := range e.txs {
		at, err := time.Parse(time.RFC3339Nano, tx.Time)
		if err != nil {
			continue
		}
		if !q.From.IsZero() && at.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && at.After(q.To) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
