package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// UpsertAccount inserts or replaces the account row.
func (j *SQLite) UpsertAccount(ctx context.Context, a Account) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO accounts
		(id, broker_account_id, currency, tier, account_size, current_balance, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			broker_account_id = excluded.broker_account_id,
			currency = excluded.currency,
			tier = excluded.tier,
			account_size = excluded.account_size,
			current_balance = excluded.current_balance,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		a.ID, a.BrokerAccountID, a.Currency, a.Tier, a.AccountSize,
		a.CurrentBalance, a.Status, a.UpdatedAt.UTC(),
	)
	return err
}

func (j *SQLite) RecordOrder(ctx context.Context, o OrderRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO orders
		(id, account_id, instrument, side, units, entry_price, stop_loss, take_profit, risk_usd,
		 status, broker_order_id, trade_id, reason, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.AccountID, o.Instrument, o.Side, o.Units, o.EntryPrice, o.StopLoss,
		o.TakeProfit, o.RiskUSD, o.Status, o.BrokerOrderID, o.TradeID, o.Reason,
		o.Error, o.CreatedAt.UTC(),
	)
	return err
}

func (j *SQLite) RecordTrade(ctx context.Context, t TradeRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(id, account_id, order_id, trade_id, instrument, side, units, entry_price,
		 stop_loss, take_profit, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.OrderID, t.TradeID, t.Instrument, t.Side, t.Units,
		t.EntryPrice, t.StopLoss, t.TakeProfit, t.Status, t.Timestamp.UTC(),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
