package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/history"
	"github.com/rustyeddy/propdesk/journal"
	"github.com/rustyeddy/propdesk/oanda"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Rebuild trade history from the broker or a saved snapshot",
	Long: `Reconstruct logical trades from closed-trade summaries when the broker
has them, otherwise from the raw transaction log.

Examples:
  propdesk history
  propdesk history --format json
  propdesk history --file snapshot.json --format org`,
	RunE: runHistory,
}

var (
	historyFile    string
	historyFormat  string
	historyAccount string
	historyDays    int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyFile, "file", "f", "", "OANDA JSON snapshot instead of live data")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "table, json, org or csv")
	historyCmd.Flags().StringVar(&historyAccount, "broker-account", "", "OANDA account id (defaults to account.broker_account_id)")
	historyCmd.Flags().IntVar(&historyDays, "days", 365, "transaction window when paging is unavailable")
}

func runHistory(cmd *cobra.Command, args []string) error {
	var res history.Result

	if historyFile != "" {
		snap, err := oanda.LoadSnapshot(historyFile)
		if err != nil {
			return err
		}
		res = history.Build(snap.Input())
	} else {
		id := historyAccount
		if id == "" {
			id = cfg.Account.BrokerAccountID
		}
		if id == "" {
			return fmt.Errorf("no broker account: set account.broker_account_id or OANDA_ACCOUNT_ID")
		}

		b, err := newBroker()
		if err != nil {
			return err
		}
		// History never touches the journal.
		d, err := newDesk(b, nil)
		if err != nil {
			return err
		}
		res, err = d.History(context.Background(), id, broker.TransactionQuery{
			From: time.Now().AddDate(0, 0, -historyDays),
		})
		if err != nil {
			return err
		}
	}

	for _, s := range res.Skipped {
		logger.Debug().Str("tx", s.TransactionID).Str("type", s.Type).Err(s.Err).Msg("skipped transaction")
	}
	return writeHistory(cmd.OutOrStdout(), historyFormat, res)
}

func writeHistory(w io.Writer, format string, res history.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Source  history.Source      `json:"source"`
			Summary history.Stats       `json:"summary"`
			Trades  []history.TradeView `json:"trades"`
		}{res.Source, history.Summarize(res.Trades).Rounded(), history.Views(res.Trades)})
	case "org":
		_, err := fmt.Fprint(w, journal.FormatTradesOrg(res.Trades))
		return err
	case "csv":
		return journal.WriteHistoryCSV(w, res.Trades)
	case "table", "":
		return writeHistoryTable(w, res)
	}
	return fmt.Errorf("unknown format %q (want table, json, org or csv)", format)
}

func writeHistoryTable(w io.Writer, res history.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRADE\tINSTRUMENT\tSIDE\tSTATUS\tOPENED\tUNITS\tOPEN PRICE\tREALIZED\tUNREALIZED")
	for _, v := range history.Views(res.Trades) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\t%s\t%.2f\t%s\n",
			v.TradeID, v.Instrument, v.Side, v.Status, orDash(v.OpenedAt),
			v.OpenUnits, numOrDash(v.OpenPrice), v.RealizedPL, numOrDash(v.UnrealizedPL))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := history.Summarize(res.Trades).Rounded()
	_, err := fmt.Fprintf(w, "\n%d trades (%d open, %d closed) from %s: realized $%.2f, unrealized $%.2f\n",
		s.Total, s.Open, s.Closed, res.Source, s.RealizedPL, s.UnrealizedPL)
	return err
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func numOrDash(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
