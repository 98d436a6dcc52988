package history

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstruct_PartialCloseAccumulation(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		tradeClose("3", "100", "EUR_USD", -600, 1.0840, -2.00, 30),
		openFill("1", "100", "EUR_USD", 1000, 1.0850, 0),
		tradeClose("2", "100", "EUR_USD", -400, 1.0862, 5.00, 10),
	}

	res := Reconstruct(txs, nil)
	require.Len(t, res.Trades, 1)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, FromTransactionLog, res.Source)

	tr := res.Trades[0]
	assert.Equal(t, "100", tr.TradeID)
	assert.Equal(t, Buy, tr.Side)
	assert.Equal(t, 0.0, tr.RemainingUnits)
	assert.Equal(t, 1000.0, tr.OpenUnits)
	assert.Equal(t, Closed, tr.Status)
	assert.InDelta(t, 3.00, tr.TotalRealizedPL, 1e-9)
	require.Len(t, tr.Closes, 2)
	assert.Equal(t, 400.0, *tr.Closes[0].Units)
	assert.Equal(t, 600.0, *tr.Closes[1].Units)
	require.NotNil(t, tr.ClosedAt)
	assert.True(t, tr.ClosedAt.Equal(tm(30)))
	assert.Nil(t, tr.UnrealizedPL)

	d, ok := tr.Duration()
	require.True(t, ok)
	assert.Equal(t, 30*60.0, d.Seconds())
}

func TestReconstruct_PartialCloseStaysOpen(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("1", "7", "USD_JPY", -2000, 150.250, 0),
		tradeClose("2", "7", "USD_JPY", 500, 150.100, 3.1, 5),
	}
	res := Reconstruct(txs, []OpenTrade{{ID: "7", UnrealizedPL: f(-1.25)}})
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, Sell, tr.Side)
	assert.Equal(t, Open, tr.Status)
	assert.Equal(t, 1500.0, tr.RemainingUnits)
	assert.Nil(t, tr.ClosedAt)
	require.NotNil(t, tr.UnrealizedPL)
	assert.Equal(t, -1.25, *tr.UnrealizedPL)
}

func TestReconstruct_ScaleInWeightedAverage(t *testing.T) {
	t.Parallel()

	add := RawTransaction{ID: "2", Type: "OrderFillTransaction", TradeID: "42", Instrument: "EUR_USD", Units: f(3000), Price: f(1.2000), Time: at(1)}
	txs := []RawTransaction{add, openFill("1", "42", "EUR_USD", 1000, 1.1000, 0)}

	res := Reconstruct(txs, nil)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.NotNil(t, tr.OpenPrice)
	assert.InDelta(t, 1.175, *tr.OpenPrice, 1e-12)
	assert.Equal(t, 4000.0, tr.OpenUnits)
	assert.Equal(t, 4000.0, tr.RemainingUnits)
	assert.True(t, tr.OpenedAt.Equal(tm(0)))
}

func TestReconstruct_UnknownTradeClose(t *testing.T) {
	t.Parallel()

	res := Reconstruct([]RawTransaction{tradeClose("9", "300", "GBP_USD", -100, 1.2711, 1.5, 3)}, nil)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, "300", tr.TradeID)
	assert.Equal(t, "GBP_USD", tr.Instrument)
	assert.Nil(t, tr.OpenedAt)
	assert.Nil(t, tr.OpenPrice)
	assert.Equal(t, Side(""), tr.Side)
	assert.Equal(t, Closed, tr.Status)
	require.Len(t, tr.Closes, 1)
	assert.Equal(t, 1.2711, *tr.Closes[0].Price)
	assert.InDelta(t, 1.5, tr.TotalRealizedPL, 1e-12)
	require.NotNil(t, tr.ClosedAt)
	assert.True(t, tr.ClosedAt.Equal(tm(3)))

	_, ok := tr.Duration()
	assert.False(t, ok)
}

func TestReconstruct_OpenTradeEnrichment(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("1", "200", "EUR_USD", 500, 1.08, 0),
		openFill("2", "201", "EUR_USD", 700, 1.09, 1),
		openFill("3", "202", "EUR_USD", 100, 1.10, 2),
		tradeClose("4", "202", "EUR_USD", -100, 1.11, 1.0, 3),
	}
	open := []OpenTrade{
		{ID: "200", UnrealizedPL: f(12.34)},
		{ID: " 202\u200B", UnrealizedPL: f(99)},
	}

	got := byID(Reconstruct(txs, open).Trades)
	require.NotNil(t, got["200"].UnrealizedPL)
	assert.Equal(t, 12.34, *got["200"].UnrealizedPL)
	assert.Nil(t, got["201"].UnrealizedPL)
	assert.Nil(t, got["202"].UnrealizedPL, "closed trades are never enriched")
}

func TestReconstruct_OrderIndependent(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("10", "1", "EUR_USD", 1000, 1.0850, 0),
		openFill("11", "2", "USD_JPY", -3000, 150.25, 0),
		{ID: "12", Type: "ORDER_FILL", TradeID: "1", Instrument: "EUR_USD", Units: f(500), Price: f(1.0860), Time: at(0)},
		tradeClose("13", "1", "EUR_USD", -700, 1.0870, 1.4, 5),
		tradeClose("14", "2", "USD_JPY", 1000, 150.00, 1.66, 5),
		tradeClose("15", "1", "EUR_USD", -800, 1.0840, -0.8, 9),
		openFill("16", "3", "GBP_USD", 2500, 1.2700, 7),
		{ID: "17", Type: "DAILY_FINANCING", Time: at(8)},
		tradeClose("18", "4", "EUR_GBP", -10, 0.85, 0.01, 11),
		{ID: "19", Type: "TRADE_CLOSE", Time: at(12)},
		{ID: "20", Type: "ORDER_FILL", TradeID: "5", Time: "yesterday"},
	}
	open := []OpenTrade{{ID: "2", UnrealizedPL: f(-4.2)}, {ID: "3", UnrealizedPL: f(0.5)}}

	want := Reconstruct(txs, open)
	require.Len(t, want.Trades, 4)
	require.Len(t, want.Skipped, 2)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := append([]RawTransaction(nil), txs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Reconstruct(shuffled, open)
		assert.Equal(t, want.Trades, got.Trades)
		assert.ElementsMatch(t, want.Skipped, got.Skipped)
	}
}

func TestReconstruct_OrderIndependentWithoutIDs(t *testing.T) {
	t.Parallel()

	// same instant written with two offsets
	offset := t0.Add(5 * time.Minute).In(time.FixedZone("EST", -5*3600)).Format(time.RFC3339Nano)
	txs := []RawTransaction{
		openFill("", "1", "EUR_USD", 1000, 1.2, 0),
		{Type: "ORDER_FILL", TradeID: "1", Instrument: "EUR_USD", Units: f(500), Price: f(1.2), Time: at(0)},
		{Type: "ORDER_FILL", TradeID: "1", Instrument: "EUR_USD", Units: f(500), Price: f(1.3), Time: at(0)},
		tradeClose("", "1", "EUR_USD", 400, 1.2, 5.0, 5),
		tradeClose("", "1", "EUR_USD", 400, 1.2, -2.0, 5),
		tradeClose("", "1", "EUR_USD", 400, 1.2, 0.1, 5),
		{Type: "TRADE_CLOSE", TradeID: "1", Instrument: "EUR_USD", Units: f(400), Price: f(1.2), PL: f(0.3), Time: offset},
		{Type: "TRADE_CLOSE", TradeID: "1", Instrument: "EUR_USD", Units: f(400), Price: f(1.2), Time: at(5)},
	}

	want := Reconstruct(txs, nil)
	require.Len(t, want.Trades, 1)
	require.Len(t, want.Trades[0].Closes, 5)
	for _, c := range want.Trades[0].Closes {
		require.NotNil(t, c.Time)
		assert.Equal(t, time.UTC, c.Time.Location())
	}

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		shuffled := append([]RawTransaction(nil), txs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want.Trades, Reconstruct(shuffled, nil).Trades)
	}

	a := Reconstruct([]RawTransaction{txs[0], txs[3], txs[4]}, nil).Trades[0]
	b := Reconstruct([]RawTransaction{txs[0], txs[4], txs[3]}, nil).Trades[0]
	assert.Equal(t, a, b)
	require.NotNil(t, a.Closes[0].RealizedPL)
	assert.Equal(t, -2.0, *a.Closes[0].RealizedPL)
}

func TestReconstruct_NewestActivityFirst(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("1", "1", "EUR_USD", 100, 1.1, 0),
		tradeClose("2", "1", "EUR_USD", -100, 1.2, 1, 50),
		openFill("3", "2", "EUR_USD", 100, 1.1, 20),
		openFill("4", "3", "EUR_USD", 100, 1.1, 60),
		// same activity as trade 2; the higher ID sorts first
		openFill("5", "10", "EUR_USD", 100, 1.1, 20),
	}

	res := Reconstruct(txs, nil)
	var ids []string
	for _, tr := range res.Trades {
		ids = append(ids, tr.TradeID)
	}
	assert.Equal(t, []string{"3", "1", "10", "2"}, ids)
}

func TestReconstruct_SkipsAndIgnores(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		{ID: "1", Type: "ORDER_FILL", Instrument: "EUR_USD", Units: f(100), Time: at(0)},
		{ID: "2", Type: "TRADE_CLOSE", TradeID: "8", Time: ""},
		{ID: "3", Type: "TRANSFER_FUNDS", Time: at(1)},
		{ID: "4", Type: "MARKET_ORDER", Time: at(2)},
	}

	res := Reconstruct(txs, nil)
	assert.Empty(t, res.Trades)
	require.Len(t, res.Skipped, 3)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrUnresolvedTradeID)
	assert.Equal(t, "1", res.Skipped[0].TransactionID)
	assert.ErrorIs(t, res.Skipped[1].Err, ErrBadTime)
	assert.ErrorIs(t, res.Skipped[2].Err, ErrUnresolvedTradeID)
	assert.Equal(t, "MARKET_ORDER", res.Skipped[2].Type)
}

func TestReconstruct_CloseFallbackFields(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("1", "55", "EUR_USD", 1000, 1.1, 0),
		{
			ID:           "2",
			Type:         "TradeCloseTransaction",
			Time:         at(1),
			Price:        f(1.2),
			TradesClosed: []TradeRef{{TradeID: "55", Units: f(-1000), RealizedPL: f(100.005)}},
		},
	}

	res := Reconstruct(txs, nil)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, Closed, tr.Status)
	assert.InDelta(t, 100.005, tr.TotalRealizedPL, 1e-12, "not rounded during accumulation")
	assert.Equal(t, 1000.0, *tr.Closes[0].Units)
}

func TestReconstruct_StopFillReadsAsScaleIn(t *testing.T) {
	t.Parallel()

	// OANDA reports a triggered stop as an ORDER_FILL that closes the trade.
	// Only the summaries path sees it as a close.
	txs := []RawTransaction{
		openFill("1", "55", "EUR_USD", 1000, 1.1, 0),
		{
			ID:           "2",
			Type:         "ORDER_FILL",
			Instrument:   "EUR_USD",
			Units:        f(-1000),
			Price:        f(1.093),
			Time:         at(30),
			TradesClosed: []TradeRef{{TradeID: "55", Units: f(-1000), RealizedPL: f(-7)}},
		},
	}

	tr := Reconstruct(txs, nil).Trades[0]
	assert.Equal(t, Open, tr.Status)
	assert.Equal(t, 2000.0, tr.OpenUnits)
	assert.Empty(t, tr.Closes)
}

func TestReconstruct_OverCloseClampsAtZero(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("1", "5", "EUR_USD", 1000, 1.1, 0),
		tradeClose("2", "5", "EUR_USD", -1500, 1.2, 10, 1),
	}
	tr := Reconstruct(txs, nil).Trades[0]
	assert.Equal(t, 0.0, tr.RemainingUnits)
	assert.Equal(t, Closed, tr.Status)
}

func TestReconstruct_CloseWithoutUnitsKeepsOpen(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{
		openFill("1", "5", "EUR_USD", 1000, 1.1, 0),
		{ID: "2", Type: "TRADE_CLOSE", TradeID: "5", Time: at(1)},
	}
	tr := Reconstruct(txs, nil).Trades[0]
	assert.Equal(t, Open, tr.Status)
	require.Len(t, tr.Closes, 1)
	assert.Nil(t, tr.Closes[0].Units)
	assert.Nil(t, tr.Closes[0].RealizedPL)
	assert.Equal(t, 0.0, tr.TotalRealizedPL)
}

func TestReconstruct_ManyClosesFullPrecision(t *testing.T) {
	t.Parallel()

	txs := []RawTransaction{openFill("1", "9", "EUR_USD", 1000, 1.1, 0)}
	for i := 0; i < 1000; i++ {
		txs = append(txs, tradeClose(strconv.Itoa(i+2), "9", "EUR_USD", -1, 1.1, 0.004, i+1))
	}
	tr := Reconstruct(txs, nil).Trades[0]
	assert.Equal(t, Closed, tr.Status)
	assert.Len(t, tr.Closes, 1000)
	assert.InDelta(t, 4.0, tr.TotalRealizedPL, 1e-9)
	assert.Equal(t, 4.0, View(tr).RealizedPL)
}
