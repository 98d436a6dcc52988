package desk

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/broker/paper"
	"github.com/rustyeddy/propdesk/history"
	"github.com/rustyeddy/propdesk/journal"
	"github.com/rustyeddy/propdesk/market"
	"github.com/rustyeddy/propdesk/pkg/id"
	"github.com/rustyeddy/propdesk/risk"
)

const (
	deskID   = "desk-001"
	brokerID = "101-001-1-001"
)

// 13:00 UTC on a Monday is inside the New York window.
var monday = time.Date(2025, 3, 3, 13, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	desk   *Desk
	engine *paper.Engine
	store  *journal.SQLite
	clock  *clock
}

func newFixture(t *testing.T, o Options) *fixture {
	t.Helper()

	store, err := journal.NewSQLite(filepath.Join(t.TempDir(), "desk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.UpsertAccount(context.Background(), journal.Account{
		ID:              deskID,
		BrokerAccountID: brokerID,
		Currency:        "USD",
		Tier:            string(risk.Standard),
		AccountSize:     100_000,
		CurrentBalance:  100_000,
		Status:          journal.AccountActive,
	}))

	c := &clock{t: monday}
	engine := paper.NewEngine(broker.Account{ID: brokerID, Currency: "USD", Balance: 100_000})
	engine.SetClock(c.now)
	require.NoError(t, engine.UpdateQuote(market.Quote{
		Instrument: "EUR_USD",
		Time:       monday,
		Tradeable:  true,
		Bid:        1.08500,
		Ask:        1.08510,
	}))

	o.Logger = zerolog.Nop()
	o.Now = c.now
	o.NewID = id.NewGenerator(1, c.now).New
	return &fixture{desk: New(engine, store, o), engine: engine, store: store, clock: c}
}

func (f *fixture) orders(t *testing.T) []journal.OrderRecord {
	t.Helper()
	out, err := f.store.ListOrders(context.Background(), deskID, 0)
	require.NoError(t, err)
	return out
}

func buy(instrument string) OrderRequest {
	return OrderRequest{AccountID: deskID, Instrument: instrument, Direction: risk.Buy, Reason: "breakout"}
}

func TestPlaceOrder_FillsAndJournals(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{EnforceSession: true})
	ctx := context.Background()

	res, err := f.desk.PlaceOrder(ctx, buy("eur/usd"))
	require.NoError(t, err)

	assert.True(t, res.Fill.Filled)
	assert.Equal(t, 1.08510, res.Fill.Price)
	assert.Equal(t, uint64(357142), res.Bracket.Units)
	assert.InDelta(t, 1.08505, res.Bracket.EntryPriceUsed, 1e-9)
	assert.Equal(t, 1.08435, res.Bracket.StopLossPrice)
	assert.Equal(t, 1.08715, res.Bracket.TakeProfitPrice)
	assert.Nil(t, res.Decision)

	orders := f.orders(t)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, res.OrderID, o.ID)
	assert.Equal(t, journal.OrderPlaced, o.Status)
	assert.Equal(t, "EUR_USD", o.Instrument)
	assert.Equal(t, int64(357142), o.Units)
	assert.Equal(t, 1.08510, o.EntryPrice)
	assert.Equal(t, res.Fill.TradeID, o.TradeID)
	assert.Equal(t, "breakout", o.Reason)

	ts, found, err := f.store.FirstTradeBetween(ctx, deskID, monday.Add(-time.Hour), monday.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ts.Equal(monday))

	open, err := f.engine.OpenTrades(ctx, brokerID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, res.Fill.TradeID, open[0].ID)
	assert.Equal(t, 357142.0, open[0].CurrentUnits)
}

func TestPlaceOrder_OneTradePerSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{EnforceSession: true})
	ctx := context.Background()

	_, err := f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	require.NoError(t, err)

	f.clock.advance(2 * time.Hour)
	_, err = f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	assert.ErrorIs(t, err, risk.ErrSessionLimit)
	assert.Len(t, f.orders(t), 1)

	// 22:00 opens the Sydney window.
	f.clock.advance(7 * time.Hour)
	_, err = f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	assert.NoError(t, err)
}

func TestPlaceOrder_SessionNotEnforced(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.desk.PlaceOrder(ctx, buy("EUR_USD"))
		require.NoError(t, err)
		f.clock.advance(time.Minute)
	}
	assert.Len(t, f.orders(t), 3)
}

func TestPlaceOrder_AccountNotProvisioned(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.desk.PlaceOrder(ctx, OrderRequest{AccountID: "nobody", Instrument: "EUR_USD", Direction: risk.Buy})
	assert.ErrorIs(t, err, ErrAccountNotProvisioned)

	require.NoError(t, f.store.UpsertAccount(ctx, journal.Account{
		ID:     "pending-1",
		Status: journal.AccountPending,
	}))
	_, err = f.desk.PlaceOrder(ctx, OrderRequest{AccountID: "pending-1", Instrument: "EUR_USD", Direction: risk.Buy})
	assert.ErrorIs(t, err, ErrAccountNotProvisioned)
}

func TestPlaceOrder_PriceUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	_, err := f.desk.PlaceOrder(context.Background(), buy("GBP_USD"))
	assert.ErrorIs(t, err, ErrPriceUnavailable)
	assert.Empty(t, f.orders(t))
}

func TestPlaceOrder_InvalidInstrument(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	_, err := f.desk.PlaceOrder(context.Background(), buy("EURUSD"))
	assert.ErrorIs(t, err, risk.ErrInvalidRiskInput)
}

func TestPlaceOrder_NoUnits(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.store.UpsertAccount(ctx, journal.Account{
		ID:              deskID,
		BrokerAccountID: brokerID,
		AccountSize:     1,
		Status:          journal.AccountActive,
	}))

	res, err := f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	assert.ErrorIs(t, err, ErrPolicyViolation)
	assert.ErrorContains(t, err, "NO_UNITS")
	require.NotNil(t, res.Decision)
	assert.Equal(t, []string{"NO_UNITS"}, res.Decision.Codes())

	orders := f.orders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, journal.OrderRejected, orders[0].Status)
}

func TestPlaceOrder_PolicyCountsBrokerOpenTrades(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{Policy: &risk.Policy{MaxOpenTrades: 1, MinRR: 1.5}})
	ctx := context.Background()

	first, err := f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	require.NoError(t, err)
	require.NotNil(t, first.Decision)
	assert.True(t, first.Decision.Allowed)
	assert.InDelta(t, 3.0, first.Decision.PlannedRR, 1e-6)

	f.clock.advance(time.Minute)
	_, err = f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	assert.ErrorIs(t, err, ErrPolicyViolation)
	assert.ErrorContains(t, err, "TOO_MANY_OPEN_TRADES")

	orders := f.orders(t)
	require.Len(t, orders, 2)
	assert.Equal(t, journal.OrderRejected, orders[0].Status)
	assert.Equal(t, journal.OrderPlaced, orders[1].Status)
}

func TestPlaceOrder_CrossPairNeedsApproxAllowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{Policy: &risk.Policy{}})
	require.NoError(t, f.engine.UpdateQuote(market.Quote{
		Instrument: "EUR_GBP", Time: monday, Tradeable: true, Bid: 0.85000, Ask: 0.85010,
	}))

	res, err := f.desk.PlaceOrder(context.Background(), buy("EUR_GBP"))
	assert.ErrorIs(t, err, ErrPolicyViolation)
	assert.True(t, res.Bracket.Approx)
	assert.NotEmpty(t, res.Bracket.Note)
}

func TestPlaceOrder_BrokerRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{EnforceSession: true})
	ctx := context.Background()
	require.NoError(t, f.engine.UpdateQuote(market.Quote{
		Instrument: "EUR_USD", Time: monday, Tradeable: false, Bid: 1.085, Ask: 1.0851,
	}))

	res, err := f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.False(t, res.Fill.Filled)

	orders := f.orders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, journal.OrderRejected, orders[0].Status)
	assert.Equal(t, "MARKET_HALTED", orders[0].Error)

	// a rejected order does not use up the session
	_, found, err := f.store.FirstTradeBetween(ctx, deskID, monday.Add(-time.Hour), monday.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, found)
}

// broken fails the inputs named in fail and defers the rest to the engine.
type broken struct {
	*paper.Engine
	fail map[string]bool
}

var errDown = errors.New("endpoint down")

func (b broken) OpenTrades(ctx context.Context, id string) ([]history.OpenTrade, error) {
	if b.fail["open"] {
		return nil, errDown
	}
	return b.Engine.OpenTrades(ctx, id)
}

func (b broken) ClosedTrades(ctx context.Context, id string) ([]history.ClosedTrade, error) {
	if b.fail["closed"] {
		return nil, errDown
	}
	return b.Engine.ClosedTrades(ctx, id)
}

func (b broken) Transactions(ctx context.Context, id string, q broker.TransactionQuery) ([]history.RawTransaction, error) {
	if b.fail["txs"] {
		return nil, errDown
	}
	return b.Engine.Transactions(ctx, id, q)
}

func (b broken) GetAccount(ctx context.Context, id string) (broker.Account, error) {
	if b.fail["account"] {
		return broker.Account{}, errDown
	}
	return b.Engine.GetAccount(ctx, id)
}

func TestHistory(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	ctx := context.Background()

	first, err := f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	require.NoError(t, err)
	f.clock.advance(time.Minute)
	_, err = f.desk.PlaceOrder(ctx, buy("EUR_USD"))
	require.NoError(t, err)
	f.clock.advance(time.Minute)
	require.NoError(t, f.engine.CloseTrade(ctx, first.Fill.TradeID, ""))

	cases := []struct {
		name   string
		fail   map[string]bool
		source history.Source
		trades int
	}{
		{"all inputs", nil, history.FromTradeSummaries, 2},
		{"summaries down", map[string]bool{"closed": true}, history.FromTransactionLog, 2},
		{"transactions down", map[string]bool{"txs": true}, history.FromTradeSummaries, 2},
		{"only transactions", map[string]bool{"closed": true, "open": true}, history.FromTransactionLog, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := New(broken{Engine: f.engine, fail: tc.fail}, f.store, Options{Logger: zerolog.Nop()})
			res, err := d.History(ctx, brokerID, broker.TransactionQuery{})
			require.NoError(t, err)
			assert.Equal(t, tc.source, res.Source)
			require.Len(t, res.Trades, tc.trades)

			byID := map[string]history.LogicalTrade{}
			for _, tr := range res.Trades {
				byID[tr.TradeID] = tr
			}
			closed := byID[first.Fill.TradeID]
			assert.Equal(t, history.Closed, closed.Status)
		})
	}
}

func TestHistory_AllInputsFail(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	d := New(broken{Engine: f.engine, fail: map[string]bool{"open": true, "closed": true, "txs": true}},
		f.store, Options{Logger: zerolog.Nop()})
	_, err := d.History(context.Background(), brokerID, broker.TransactionQuery{})
	assert.ErrorIs(t, err, ErrInputUnavailable)
	assert.ErrorIs(t, err, errDown)
}

func TestPlaceOrder_PolicyFailsClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	d := New(broken{Engine: f.engine, fail: map[string]bool{"account": true}}, f.store, Options{
		Policy: &risk.Policy{MaxOpenTrades: 5},
		Logger: zerolog.Nop(),
		Now:    f.clock.now,
	})
	_, err := d.PlaceOrder(context.Background(), buy("EUR_USD"))
	assert.ErrorIs(t, err, errDown)

	open, err := f.engine.OpenTrades(context.Background(), brokerID)
	require.NoError(t, err)
	assert.Empty(t, open)

	orders := f.orders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, journal.OrderFailed, orders[0].Status)
}
