package oanda

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rustyeddy/propdesk/market"
)

type priceBucket struct {
	Price     Num `json:"price"`
	Liquidity int `json:"liquidity"`
}

type clientPrice struct {
	Instrument  string        `json:"instrument"`
	Time        string        `json:"time"`
	Tradeable   bool          `json:"tradeable"`
	Status      string        `json:"status"`
	Bids        []priceBucket `json:"bids"`
	Asks        []priceBucket `json:"asks"`
	CloseoutBid *Num          `json:"closeoutBid"`
	CloseoutAsk *Num          `json:"closeoutAsk"`
}

type pricingResponse struct {
	Prices []clientPrice `json:"prices"`
}

func best(buckets []priceBucket) float64 {
	if len(buckets) == 0 {
		return 0
	}
	return float64(buckets[0].Price)
}

func (p clientPrice) quote() market.Quote {
	q := market.Quote{
		Instrument:  p.Instrument,
		Tradeable:   p.Tradeable,
		Status:      p.Status,
		Bid:         best(p.Bids),
		Ask:         best(p.Asks),
		CloseoutBid: p.CloseoutBid.Float(),
		CloseoutAsk: p.CloseoutAsk.Float(),
	}
	if t, err := time.Parse(time.RFC3339Nano, p.Time); err == nil {
		q.Time = t
	}
	return q
}

// GetQuote fetches the current price of one instrument. The quote is
// returned as the broker sent it; picking a usable price is the caller's
// job.
func (c *Client) GetQuote(ctx context.Context, accountID, instrument string) (market.Quote, error) {
	in, err := market.ParseInstrument(instrument)
	if err != nil {
		return market.Quote{}, err
	}

	params := url.Values{}
	params.Set("instruments", in.String())

	var resp pricingResponse
	if err := c.do(ctx, "GET", accountPath(accountID)+"/pricing?"+params.Encode(), nil, &resp); err != nil {
		return market.Quote{}, fmt.Errorf("pricing %s: %w", in, err)
	}
	for _, p := range resp.Prices {
		if p.Instrument == in.String() {
			return p.quote(), nil
		}
	}
	return market.Quote{}, fmt.Errorf("pricing %s: %w", in, market.ErrNoPrice)
}
