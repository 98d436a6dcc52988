package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetAccount returns the account by desk ID.
func (j *SQLite) GetAccount(ctx context.Context, id string) (Account, error) {
	var a Account

	row := j.db.QueryRowContext(ctx, `
		SELECT id, broker_account_id, currency, tier, account_size, current_balance, status, updated_at
		FROM accounts
		WHERE id = ?`, id)

	err := row.Scan(
		&a.ID,
		&a.BrokerAccountID,
		&a.Currency,
		&a.Tier,
		&a.AccountSize,
		&a.CurrentBalance,
		&a.Status,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, fmt.Errorf("account %q: %w", id, ErrNotFound)
		}
		return Account{}, err
	}
	return a, nil
}

// ListOrders returns the account's orders, newest first. limit <= 0 means
// no limit.
func (j *SQLite) ListOrders(ctx context.Context, accountID string, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, account_id, instrument, side, units, entry_price, stop_loss, take_profit, risk_usd,
		       status, broker_order_id, trade_id, reason, error, created_at
		FROM orders
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var o OrderRecord
		if err := rows.Scan(
			&o.ID,
			&o.AccountID,
			&o.Instrument,
			&o.Side,
			&o.Units,
			&o.EntryPrice,
			&o.StopLoss,
			&o.TakeProfit,
			&o.RiskUSD,
			&o.Status,
			&o.BrokerOrderID,
			&o.TradeID,
			&o.Reason,
			&o.Error,
			&o.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FirstTradeBetween returns the earliest trade timestamp for the account
// within [start, end).
func (j *SQLite) FirstTradeBetween(ctx context.Context, accountID string, start, end time.Time) (time.Time, bool, error) {
	var ts time.Time
	err := j.db.QueryRowContext(ctx, `
		SELECT timestamp
		FROM trades
		WHERE account_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
		LIMIT 1`, accountID, start.UTC(), end.UTC()).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return ts, true, nil
}
