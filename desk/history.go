package desk

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/history"
)

// History fetches open trades, closed trade summaries and transactions
// concurrently and hands whatever arrived to history.Build. A failed fetch
// only narrows the input; all three failing is an error.
func (d *Desk) History(ctx context.Context, brokerAccountID string, q broker.TransactionQuery) (history.Result, error) {
	var (
		in                         history.Input
		openErr, closedErr, txsErr error
	)

	// Each fetch keeps its own error so one failure never cancels the others.
	var g errgroup.Group
	g.Go(func() error {
		in.OpenTrades, openErr = d.broker.OpenTrades(ctx, brokerAccountID)
		return nil
	})
	g.Go(func() error {
		in.ClosedTrades, closedErr = d.broker.ClosedTrades(ctx, brokerAccountID)
		return nil
	})
	g.Go(func() error {
		in.Transactions, txsErr = d.broker.Transactions(ctx, brokerAccountID, q)
		return nil
	})
	_ = g.Wait()

	log := d.log.With().Str("account", brokerAccountID).Logger()
	for name, err := range map[string]error{"open trades": openErr, "closed trades": closedErr, "transactions": txsErr} {
		if err != nil {
			log.Warn().Err(err).Str("input", name).Msg("history input unavailable")
		}
	}

	if openErr != nil && closedErr != nil && txsErr != nil {
		return history.Result{}, fmt.Errorf("%w: %w", ErrInputUnavailable, errors.Join(openErr, closedErr, txsErr))
	}

	if openErr != nil {
		in.OpenTrades = nil
	}
	if txsErr != nil {
		in.Transactions = nil
	}
	in.SummariesAvailable = closedErr == nil

	res := history.Build(in)
	if len(res.Skipped) > 0 {
		log.Debug().Int("skipped", len(res.Skipped)).Str("source", string(res.Source)).Msg("history events skipped")
	}
	return res, nil
}
