package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propdesk/market"
	"github.com/rustyeddy/propdesk/risk"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Compute a risk-sized bracket without placing it",
	Long: `Size an order so the loss at the stop is at most risk_fraction of equity.

With --price the bracket is computed offline from the configured account.
Without it the live quote for the journaled account is used.

Examples:
  propdesk size --instrument EUR_USD --direction BUY --price 1.08505
  propdesk size --instrument USD_JPY --direction SELL`,
	RunE: runSize,
}

var (
	sizeInstrument string
	sizeDirection  string
	sizePrice      float64
	sizeEquity     float64
	sizeTier       string
	sizeRate       float64
	sizeAccount    string
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVarP(&sizeInstrument, "instrument", "i", "", "instrument, e.g. EUR_USD (required)")
	sizeCmd.Flags().StringVarP(&sizeDirection, "direction", "d", "BUY", "BUY or SELL")
	sizeCmd.Flags().Float64Var(&sizePrice, "price", 0, "reference price for offline sizing")
	sizeCmd.Flags().Float64Var(&sizeEquity, "equity", 0, "equity override for offline sizing")
	sizeCmd.Flags().StringVar(&sizeTier, "tier", "", "tier override for offline sizing (standard or pro)")
	sizeCmd.Flags().Float64Var(&sizeRate, "quote-rate", 0, "quote currency to USD rate for cross pairs")
	sizeCmd.Flags().StringVar(&sizeAccount, "account", "", "desk account id for live sizing")
	sizeCmd.MarkFlagRequired("instrument")
}

func runSize(cmd *cobra.Command, args []string) error {
	dir, err := risk.ParseDirection(sizeDirection)
	if err != nil {
		return err
	}

	if sizePrice > 0 {
		equity := sizeEquity
		if equity <= 0 {
			equity = cfg.Account.AccountSize
		}
		if equity <= 0 {
			equity = cfg.Account.CurrentBalance
		}
		tier := cfg.Account.Tier
		if sizeTier != "" {
			tier = sizeTier
		}
		stop, reward := risk.TierRules(risk.ParseTier(tier))
		if cfg.Risk.StopPips > 0 {
			stop = cfg.Risk.StopPips
		}

		b, err := risk.ComputeBracket(risk.RiskParameters{
			Instrument:     sizeInstrument,
			AccountEquity:  equity,
			RiskFraction:   cfg.Risk.RiskFraction,
			StopPips:       stop,
			RewardPips:     reward,
			Direction:      dir,
			ReferencePrice: sizePrice,
			QuoteToAccount: sizeRate,
		})
		if err != nil {
			return err
		}
		printBracket(cmd.OutOrStdout(), b)
		return nil
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

	sz, err := d.Size(context.Background(), accountID(sizeAccount), sizeInstrument, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Quote: bid %v ask %v (%s)\n", sz.Quote.Bid, sz.Quote.Ask, sz.Quote.Time.UTC().Format("2006-01-02 15:04:05"))
	printBracket(cmd.OutOrStdout(), sz.Bracket)
	return nil
}

func printBracket(w io.Writer, b risk.OrderBracket) {
	in := market.MustInstrument(b.Instrument)
	fmt.Fprintf(w, "%s %s\n", b.Direction, b.Instrument)
	fmt.Fprintf(w, "  Entry:       %s\n", in.FormatPrice(b.EntryPriceUsed))
	fmt.Fprintf(w, "  Stop Loss:   %s (%.1f pips)\n", in.FormatPrice(b.StopLossPrice), b.StopPips)
	fmt.Fprintf(w, "  Take Profit: %s (%.1f pips)\n", in.FormatPrice(b.TakeProfitPrice), b.RewardPips)
	fmt.Fprintf(w, "  Units:       %d (%.2f lots)\n", b.Units, b.Lots)
	fmt.Fprintf(w, "  Risk:        $%.2f\n", b.RiskDollars)
	if b.Approx {
		fmt.Fprintf(w, "  Note:        %s\n", b.Note)
	}
}
