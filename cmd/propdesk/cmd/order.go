package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propdesk/desk"
	"github.com/rustyeddy/propdesk/risk"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Size and place a bracketed market order",
	Long: `Place a fill-or-kill market order sized from the live quote, with the
tier's stop loss and take profit attached on fill.

The account must be active in the journal (see "propdesk account set").
Only one trade per session window is allowed unless session.enforce is off
or ALLOW_MULTIPLE_TRADES=true.

Example:
  propdesk order --instrument EUR_USD --direction BUY --reason "London breakout"`,
	RunE: runOrder,
}

var (
	orderInstrument string
	orderDirection  string
	orderReason     string
	orderAccount    string
)

func init() {
	rootCmd.AddCommand(orderCmd)

	orderCmd.Flags().StringVarP(&orderInstrument, "instrument", "i", "", "instrument, e.g. EUR_USD (required)")
	orderCmd.Flags().StringVarP(&orderDirection, "direction", "d", "", "BUY or SELL (required)")
	orderCmd.Flags().StringVarP(&orderReason, "reason", "r", "", "trade thesis recorded in the journal")
	orderCmd.Flags().StringVar(&orderAccount, "account", "", "desk account id (defaults to account.id)")
	orderCmd.MarkFlagRequired("instrument")
	orderCmd.MarkFlagRequired("direction")
}

func runOrder(cmd *cobra.Command, args []string) error {
	dir, err := risk.ParseDirection(orderDirection)
	if err != nil {
		return err
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	b, err := newBroker()
	if err != nil {
		return err
	}
	d, err := newDesk(b, j)
	if err != nil {
		return err
	}

	res, err := d.PlaceOrder(context.Background(), desk.OrderRequest{
		AccountID:  accountID(orderAccount),
		Instrument: orderInstrument,
		Direction:  dir,
		Reason:     orderReason,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Order filled: trade %s (order %s)\n", res.Fill.TradeID, res.Fill.OrderID)
	fmt.Fprintf(out, "  Filled at: %v\n", res.Fill.Price)
	printBracket(out, res.Bracket)
	return nil
}
