package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the order journal",
	Long: `Query order attempts recorded in the SQLite journal.

Subcommands:
  orders - List recent orders, newest first

Example:
  propdesk journal orders --limit 20`,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List recent order attempts",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrders,
}

var (
	journalLimit   int
	journalAccount string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOrdersCmd)

	journalOrdersCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum rows, 0 for all")
	journalOrdersCmd.Flags().StringVar(&journalAccount, "account", "", "desk account id (defaults to account.id)")
}

func runJournalOrders(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	orders, err := j.ListOrders(context.Background(), accountID(journalAccount), journalLimit)
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tINSTRUMENT\tSIDE\tUNITS\tENTRY\tSL\tTP\tSTATUS\tTRADE\tDETAIL")
	for _, o := range orders {
		detail := o.Reason
		if o.Error != "" {
			detail = o.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%v\t%v\t%v\t%s\t%s\t%s\n",
			o.CreatedAt.UTC().Format("2006-01-02 15:04"), o.Instrument, o.Side, o.Units,
			o.EntryPrice, o.StopLoss, o.TakeProfit, o.Status, orNone(o.TradeID), detail)
	}
	return tw.Flush()
}
