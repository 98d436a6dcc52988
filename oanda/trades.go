package oanda

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/history"
)

// ClosedTradeLimit is the count requested from the closed-trades listing.
const ClosedTradeLimit = 500

// Trade is OANDA's trade record, used by both listings.
type Trade struct {
	ID                ID     `json:"id"`
	Instrument        string `json:"instrument"`
	Price             *Num   `json:"price"`
	OpenTime          string `json:"openTime"`
	State             string `json:"state"`
	InitialUnits      Num    `json:"initialUnits"`
	CurrentUnits      Num    `json:"currentUnits"`
	RealizedPL        *Num   `json:"realizedPL"`
	UnrealizedPL      *Num   `json:"unrealizedPL"`
	AverageClosePrice *Num   `json:"averageClosePrice"`
	CloseTime         string `json:"closeTime"`
}

func (t Trade) open() history.OpenTrade {
	return history.OpenTrade{
		ID:           string(t.ID),
		Instrument:   t.Instrument,
		CurrentUnits: float64(t.CurrentUnits),
		InitialUnits: float64(t.InitialUnits),
		Price:        t.Price.Ptr(),
		UnrealizedPL: t.UnrealizedPL.Ptr(),
		RealizedPL:   t.RealizedPL.Ptr(),
		OpenTime:     t.OpenTime,
	}
}

func (t Trade) closed() history.ClosedTrade {
	return history.ClosedTrade{
		ID:                string(t.ID),
		Instrument:        t.Instrument,
		InitialUnits:      float64(t.InitialUnits),
		Price:             t.Price.Ptr(),
		AverageClosePrice: t.AverageClosePrice.Ptr(),
		RealizedPL:        t.RealizedPL.Ptr(),
		OpenTime:          t.OpenTime,
		CloseTime:         t.CloseTime,
	}
}

type tradesResponse struct {
	Trades []Trade `json:"trades"`
}

func (c *Client) OpenTrades(ctx context.Context, accountID string) ([]history.OpenTrade, error) {
	var resp tradesResponse
	if err := c.do(ctx, "GET", accountPath(accountID)+"/openTrades", nil, &resp); err != nil {
		return nil, fmt.Errorf("open trades: %w", err)
	}
	out := make([]history.OpenTrade, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		out = append(out, t.open())
	}
	return out, nil
}

func (c *Client) ClosedTrades(ctx context.Context, accountID string) ([]history.ClosedTrade, error) {
	params := url.Values{}
	params.Set("state", "CLOSED")
	params.Set("count", strconv.Itoa(ClosedTradeLimit))

	var resp tradesResponse
	if err := c.do(ctx, "GET", accountPath(accountID)+"/trades?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}
	out := make([]history.ClosedTrade, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		out = append(out, t.closed())
	}
	return out, nil
}

type tradeRef struct {
	TradeID    ID   `json:"tradeID"`
	Units      *Num `json:"units"`
	Price      *Num `json:"price"`
	RealizedPL *Num `json:"realizedPL"`
}

func (r tradeRef) ref() history.TradeRef {
	return history.TradeRef{TradeID: string(r.TradeID), Units: r.Units.Ptr(), RealizedPL: r.RealizedPL.Ptr()}
}

// Transaction holds the subset of fields any fill or close subtype carries.
type Transaction struct {
	ID           ID         `json:"id"`
	Type         string     `json:"type"`
	Reason       string     `json:"reason"`
	Time         string     `json:"time"`
	Instrument   string     `json:"instrument"`
	Units        *Num       `json:"units"`
	Price        *Num       `json:"price"`
	PL           *Num       `json:"pl"`
	TradeID      ID         `json:"tradeID"`
	TradeOpened  *tradeRef  `json:"tradeOpened"`
	TradesClosed []tradeRef `json:"tradesClosed"`
}

func (tx Transaction) raw() history.RawTransaction {
	r := history.RawTransaction{
		ID:         string(tx.ID),
		Type:       tx.Type,
		Reason:     tx.Reason,
		TradeID:    string(tx.TradeID),
		Instrument: tx.Instrument,
		Units:      tx.Units.Ptr(),
		Price:      tx.Price.Ptr(),
		Time:       tx.Time,
		PL:         tx.PL.Ptr(),
	}
	if tx.TradeOpened != nil {
		ref := tx.TradeOpened.ref()
		r.TradeOpened = &ref
	}
	for _, tc := range tx.TradesClosed {
		r.TradesClosed = append(r.TradesClosed, tc.ref())
	}
	return r
}

func rawTransactions(txs []Transaction) []history.RawTransaction {
	out := make([]history.RawTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.raw())
	}
	return out
}

type transactionsRoot struct {
	Pages        []string      `json:"pages"`
	Count        int           `json:"count"`
	Transactions []Transaction `json:"transactions"`
}

type transactionsPage struct {
	Transactions []Transaction `json:"transactions"`
}

const (
	defaultLookback = 365 * 24 * time.Hour
	defaultPageSize = 1000
)

// Transactions fetches the transaction log. The root listing's pages are
// followed in order; if that fails the same range is requested as a single
// from/to window.
func (c *Client) Transactions(ctx context.Context, accountID string, q broker.TransactionQuery) ([]history.RawTransaction, error) {
	txs, err := c.transactionsByPages(ctx, accountID, q)
	if err == nil {
		return txs, nil
	}
	c.log.Warn().Err(err).Str("account", accountID).Msg("transaction pages failed, using window")

	txs, werr := c.transactionsWindow(ctx, accountID, q)
	if werr != nil {
		return nil, fmt.Errorf("transactions: %w", werr)
	}
	return txs, nil
}

func (q windowQuery) values() url.Values {
	params := url.Values{}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return params
}

type windowQuery broker.TransactionQuery

func (c *Client) transactionsByPages(ctx context.Context, accountID string, q broker.TransactionQuery) ([]history.RawTransaction, error) {
	path := accountPath(accountID) + "/transactions"
	if params := windowQuery(q).values(); len(params) > 0 {
		path += "?" + params.Encode()
	}

	var root transactionsRoot
	if err := c.do(ctx, "GET", path, nil, &root); err != nil {
		return nil, fmt.Errorf("transactions root: %w", err)
	}
	// Some answers carry the transactions inline instead of page links.
	if len(root.Transactions) > 0 {
		return rawTransactions(root.Transactions), nil
	}

	var all []Transaction
	for i, page := range root.Pages {
		var resp transactionsPage
		if err := c.do(ctx, "GET", relative(page), nil, &resp); err != nil {
			return nil, fmt.Errorf("transactions page %d of %d: %w", i+1, len(root.Pages), err)
		}
		all = append(all, resp.Transactions...)
	}
	return rawTransactions(all), nil
}

func (c *Client) transactionsWindow(ctx context.Context, accountID string, q broker.TransactionQuery) ([]history.RawTransaction, error) {
	if q.From.IsZero() {
		q.From = time.Now().Add(-defaultLookback)
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}

	var resp transactionsPage
	path := accountPath(accountID) + "/transactions?" + windowQuery(q).values().Encode()
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return rawTransactions(resp.Transactions), nil
}

// relative turns an absolute page URL into a path on the client's base URL.
func relative(page string) string {
	u, err := url.Parse(page)
	if err != nil || u.Path == "" {
		return page
	}
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}
