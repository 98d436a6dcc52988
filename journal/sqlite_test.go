package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('accounts','orders','trades')`)
	assert.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["accounts"])
	assert.True(t, found["orders"])
	assert.True(t, found["trades"])
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, path := newTestSQLite(t)
	require.NoError(t, j.UpsertAccount(ctx, Account{ID: "acct-1", Status: AccountActive, Currency: "USD", Tier: "standard"}))
	require.NoError(t, j.Close())

	j2, err := NewSQLite(path)
	require.NoError(t, err)
	defer j2.Close()

	a, err := j2.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, AccountActive, a.Status)
}

func TestSQLiteAccounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	a := Account{
		ID:              "acct-1",
		BrokerAccountID: "101-001-1-001",
		Currency:        "USD",
		Tier:            "pro",
		AccountSize:     100_000,
		CurrentBalance:  98_500.25,
		Status:          AccountPending,
		UpdatedAt:       time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, j.UpsertAccount(ctx, a))

	got, err := j.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, a.BrokerAccountID, got.BrokerAccountID)
	assert.Equal(t, "pro", got.Tier)
	assert.InDelta(t, 98_500.25, got.CurrentBalance, 1e-9)
	assert.True(t, got.UpdatedAt.Equal(a.UpdatedAt))
	assert.False(t, got.Provisioned())

	a.Status = AccountActive
	a.UpdatedAt = a.UpdatedAt.Add(time.Hour)
	require.NoError(t, j.UpsertAccount(ctx, a))

	got, err = j.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, got.Provisioned())
}

func TestSQLiteOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2025, 2, 3, 13, 0, 0, 0, time.UTC)
	for i, status := range []string{OrderPlaced, OrderRejected, OrderFailed} {
		o := OrderRecord{
			ID:         string(rune('a' + i)),
			AccountID:  "acct-1",
			Instrument: "EUR_USD",
			Side:       "BUY",
			Units:      35_714,
			EntryPrice: 1.085,
			StopLoss:   1.0843,
			TakeProfit: 1.0871,
			RiskUSD:    25,
			Status:     status,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if status == OrderFailed {
			o.Error = "boom"
		}
		require.NoError(t, j.RecordOrder(ctx, o))
	}
	require.NoError(t, j.RecordOrder(ctx, OrderRecord{ID: "z", AccountID: "acct-2", Instrument: "USD_JPY", Side: "SELL", Status: OrderPlaced, CreatedAt: base}))

	orders, err := j.ListOrders(ctx, "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, OrderFailed, orders[0].Status)
	assert.Equal(t, "boom", orders[0].Error)
	assert.Equal(t, int64(35_714), orders[2].Units)
	assert.True(t, orders[2].CreatedAt.Equal(base))

	limited, err := j.ListOrders(ctx, "acct-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteFirstTradeBetween(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	start := time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)
	end := start.Add(9 * time.Hour)

	_, found, err := j.FirstTradeBetween(ctx, "acct-1", start, end)
	require.NoError(t, err)
	assert.False(t, found)

	rec := func(id string, at time.Time, acct string) TradeRecord {
		return TradeRecord{ID: id, AccountID: acct, OrderID: "o" + id, TradeID: "t" + id, Instrument: "EUR_USD", Side: "BUY", Units: 1000, Status: "filled", Timestamp: at}
	}
	require.NoError(t, j.RecordTrade(ctx, rec("1", start.Add(-time.Minute), "acct-1")))
	require.NoError(t, j.RecordTrade(ctx, rec("2", end, "acct-1")))
	require.NoError(t, j.RecordTrade(ctx, rec("3", start.Add(time.Hour), "acct-2")))

	_, found, err = j.FirstTradeBetween(ctx, "acct-1", start, end)
	require.NoError(t, err)
	assert.False(t, found, "window is half-open")

	require.NoError(t, j.RecordTrade(ctx, rec("4", start.Add(3*time.Hour), "acct-1")))
	require.NoError(t, j.RecordTrade(ctx, rec("5", start.Add(2*time.Hour), "acct-1")))

	ts, found, err := j.FirstTradeBetween(ctx, "acct-1", start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, ts.Equal(start.Add(2*time.Hour)))

	local := time.FixedZone("EST", -5*3600)
	ts, found, err = j.FirstTradeBetween(ctx, "acct-1", start.In(local), end.In(local))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, ts.Equal(start.Add(2*time.Hour)))
}
