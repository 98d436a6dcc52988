package oanda

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rustyeddy/propdesk/broker"
)

type accountSummary struct {
	ID              ID     `json:"id"`
	Currency        string `json:"currency"`
	Balance         Num    `json:"balance"`
	NAV             Num    `json:"NAV"`
	UnrealizedPL    Num    `json:"unrealizedPL"`
	MarginUsed      Num    `json:"marginUsed"`
	MarginAvailable Num    `json:"marginAvailable"`
	OpenTradeCount  int    `json:"openTradeCount"`
}

type accountSummaryResponse struct {
	Account accountSummary `json:"account"`
}

func accountPath(accountID string) string {
	return "/v3/accounts/" + url.PathEscape(accountID)
}

// GetAccount fetches /v3/accounts/{id}/summary.
func (c *Client) GetAccount(ctx context.Context, accountID string) (broker.Account, error) {
	var resp accountSummaryResponse
	if err := c.do(ctx, "GET", accountPath(accountID)+"/summary", nil, &resp); err != nil {
		return broker.Account{}, fmt.Errorf("account summary: %w", err)
	}
	a := resp.Account
	return broker.Account{
		ID:              string(a.ID),
		Currency:        a.Currency,
		Balance:         float64(a.Balance),
		NAV:             float64(a.NAV),
		UnrealizedPL:    float64(a.UnrealizedPL),
		MarginUsed:      float64(a.MarginUsed),
		MarginAvailable: float64(a.MarginAvailable),
		OpenTradeCount:  a.OpenTradeCount,
	}, nil
}
