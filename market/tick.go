package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrNoPrice = errors.New("no usable price in quote")

// PriceSource selects which side of the book sizing is computed against.
type PriceSource string

const (
	MidSource PriceSource = "mid"
	BidSource PriceSource = "bid"
	AskSource PriceSource = "ask"
)

func ParsePriceSource(s string) (PriceSource, error) {
	switch PriceSource(strings.ToLower(strings.TrimSpace(s))) {
	case "", MidSource:
		return MidSource, nil
	case BidSource:
		return BidSource, nil
	case AskSource:
		return AskSource, nil
	default:
		return "", fmt.Errorf("unknown price source %q (want mid|bid|ask)", s)
	}
}

// Quote is one instrument's entry from a pricing response. Zero means the
// broker did not send that field.
type Quote struct {
	Instrument string
	Time       time.Time
	Tradeable  bool
	Status     string

	Bid float64
	Ask float64

	CloseoutBid float64
	CloseoutAsk float64
}

func usable(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// ReferencePrice picks the price sizing runs against. For mid it prefers
// the closeout pair, then best bid/ask, then whichever single side exists.
func (q Quote) ReferencePrice(src PriceSource) (float64, error) {
	switch src {
	case BidSource:
		return q.side(q.Bid, q.CloseoutBid)
	case AskSource:
		return q.side(q.Ask, q.CloseoutAsk)
	}

	switch {
	case usable(q.CloseoutBid) && usable(q.CloseoutAsk):
		return (q.CloseoutBid + q.CloseoutAsk) / 2, nil
	case usable(q.Bid) && usable(q.Ask):
		return (q.Bid + q.Ask) / 2, nil
	case usable(q.Bid):
		return q.Bid, nil
	case usable(q.Ask):
		return q.Ask, nil
	}
	return 0, q.noPrice()
}

func (q Quote) side(best, closeout float64) (float64, error) {
	if usable(best) {
		return best, nil
	}
	if usable(closeout) {
		return closeout, nil
	}
	return 0, q.noPrice()
}

func (q Quote) noPrice() error {
	status := q.Status
	if status == "" {
		status = "unavailable"
	}
	return fmt.Errorf("%w for %s (status: %s)", ErrNoPrice, q.Instrument, status)
}

func (q Quote) Spread() float64 {
	if !usable(q.Bid) || !usable(q.Ask) {
		return 0
	}
	return q.Ask - q.Bid
}
