package oanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/market"
)

type priceDetails struct {
	Price       string `json:"price"`
	TimeInForce string `json:"timeInForce"`
}

type clientExtensions struct {
	ID string `json:"id,omitempty"`
}

type marketOrder struct {
	Type             string            `json:"type"`
	Instrument       string            `json:"instrument"`
	Units            string            `json:"units"`
	TimeInForce      string            `json:"timeInForce"`
	PositionFill     string            `json:"positionFill"`
	StopLossOnFill   *priceDetails     `json:"stopLossOnFill,omitempty"`
	TakeProfitOnFill *priceDetails     `json:"takeProfitOnFill,omitempty"`
	ClientExtensions *clientExtensions `json:"clientExtensions,omitempty"`
}

type orderRequest struct {
	Order marketOrder `json:"order"`
}

type orderTransaction struct {
	ID           ID        `json:"id"`
	Time         string    `json:"time"`
	Units        *Num      `json:"units"`
	Price        *Num      `json:"price"`
	Reason       string    `json:"reason"`
	RejectReason string    `json:"rejectReason"`
	TradeOpened  *tradeRef `json:"tradeOpened"`
}

type orderResponse struct {
	OrderCreateTransaction *orderTransaction `json:"orderCreateTransaction"`
	OrderFillTransaction   *orderTransaction `json:"orderFillTransaction"`
	OrderCancelTransaction *orderTransaction `json:"orderCancelTransaction"`
	OrderRejectTransaction *orderTransaction `json:"orderRejectTransaction"`
	ErrorMessage           string            `json:"errorMessage"`
}

func newMarketOrder(req broker.MarketOrderRequest) orderRequest {
	in := market.MustInstrument(req.Instrument)
	o := marketOrder{
		Type:         "MARKET",
		Instrument:   in.String(),
		Units:        strconv.FormatInt(req.Units, 10),
		TimeInForce:  "FOK",
		PositionFill: "REDUCE_FIRST",
	}
	if req.StopLoss != nil {
		o.StopLossOnFill = &priceDetails{Price: in.FormatPrice(*req.StopLoss), TimeInForce: "GTC"}
	}
	if req.TakeProfit != nil {
		o.TakeProfitOnFill = &priceDetails{Price: in.FormatPrice(*req.TakeProfit), TimeInForce: "GTC"}
	}
	if req.ClientID != "" {
		o.ClientExtensions = &clientExtensions{ID: req.ClientID}
	}
	return orderRequest{Order: o}
}

func (r orderResponse) fill(req broker.MarketOrderRequest) broker.OrderFill {
	f := broker.OrderFill{Instrument: market.MustInstrument(req.Instrument).String(), Units: req.Units}
	if r.OrderCreateTransaction != nil {
		f.OrderID = string(r.OrderCreateTransaction.ID)
	}

	switch {
	case r.OrderFillTransaction != nil:
		tx := r.OrderFillTransaction
		f.Filled = true
		f.Price = tx.Price.Float()
		if tx.TradeOpened != nil {
			f.TradeID = string(tx.TradeOpened.TradeID)
		}
		if t, err := time.Parse(time.RFC3339Nano, tx.Time); err == nil {
			f.Time = t
		}
	case r.OrderCancelTransaction != nil:
		f.RejectReason = r.OrderCancelTransaction.Reason
	case r.OrderRejectTransaction != nil:
		f.RejectReason = r.OrderRejectTransaction.RejectReason
		if f.RejectReason == "" {
			f.RejectReason = r.OrderRejectTransaction.Reason
		}
	default:
		f.RejectReason = r.ErrorMessage
	}
	return f
}

// SubmitMarketOrder posts a FOK market order. A cancelled or rejected order
// comes back as an unfilled OrderFill; only transport and unexpected API
// failures are errors.
func (c *Client) SubmitMarketOrder(ctx context.Context, accountID string, req broker.MarketOrderRequest) (broker.OrderFill, error) {
	if err := req.Validate(); err != nil {
		return broker.OrderFill{}, err
	}

	var resp orderResponse
	err := c.do(ctx, "POST", accountPath(accountID)+"/orders", newMarketOrder(req), &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == 400 || apiErr.StatusCode == 404) {
		if json.Unmarshal(apiErr.Body, &resp) == nil && resp.OrderRejectTransaction != nil {
			err = nil
		}
	}
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("market order %s: %w", req.Instrument, err)
	}

	f := resp.fill(req)
	ev := c.log.Info()
	if !f.Filled {
		ev = c.log.Warn().Str("reason", f.RejectReason)
	}
	ev.Str("instrument", f.Instrument).
		Int64("units", req.Units).
		Str("order", f.OrderID).
		Str("trade", f.TradeID).
		Bool("filled", f.Filled).
		Msg("market order")
	return f, nil
}
