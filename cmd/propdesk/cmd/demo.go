package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/broker/paper"
	"github.com/rustyeddy/propdesk/desk"
	"github.com/rustyeddy/propdesk/journal"
	"github.com/rustyeddy/propdesk/market"
	"github.com/rustyeddy/propdesk/risk"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk an order through the paper broker",
	Long: `Run the full order workflow against an in-memory paper broker:

  1. Provision a demo account in a scratch journal
  2. Size and place a BUY on EUR_USD from the paper quote
  3. Move the market through the take profit
  4. Rebuild the trade history from the paper transaction log

Nothing is sent to OANDA.`,
	RunE: runDemo,
}

var demoDB string

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringVar(&demoDB, "db", "", "journal path (defaults to a temporary file)")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	path := demoDB
	if path == "" {
		dir, err := os.MkdirTemp("", "propdesk-demo")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "demo.db")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return err
	}
	defer j.Close()

	const deskID, brokerID = "DEMO-001", "PAPER-001"
	if err := j.UpsertAccount(ctx, journal.Account{
		ID:              deskID,
		BrokerAccountID: brokerID,
		Currency:        "USD",
		Tier:            string(risk.Standard),
		AccountSize:     100_000,
		CurrentBalance:  100_000,
		Status:          journal.AccountActive,
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	engine := paper.NewEngine(broker.Account{ID: brokerID, Currency: "USD", Balance: 100_000})
	if err := engine.UpdateQuote(market.Quote{
		Instrument: "EUR_USD", Time: now, Tradeable: true, Bid: 1.08500, Ask: 1.08510,
	}); err != nil {
		return err
	}

	d, err := newDesk(engine, j)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Paper Order Demo ===")
	fmt.Fprintln(out)
	res, err := d.PlaceOrder(ctx, desk.OrderRequest{
		AccountID:  deskID,
		Instrument: "EUR_USD",
		Direction:  risk.Buy,
		Reason:     "demo",
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Trade %s filled at %v\n", res.Fill.TradeID, res.Fill.Price)
	printBracket(out, res.Bracket)

	target := res.Bracket.TakeProfitPrice
	fmt.Fprintf(out, "\nMoving the market to %v...\n", target)
	if err := engine.UpdateQuote(market.Quote{
		Instrument: "EUR_USD", Time: now.Add(time.Hour), Tradeable: true, Bid: target, Ask: target + 0.0001,
	}); err != nil {
		return err
	}

	acct, err := engine.GetAccount(ctx, brokerID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Balance: $%.2f (P/L $%.2f)\n\n", acct.Balance, acct.Balance-100_000)

	hist, err := d.History(ctx, brokerID, broker.TransactionQuery{})
	if err != nil {
		return err
	}
	return writeHistory(out, "table", hist)
}
