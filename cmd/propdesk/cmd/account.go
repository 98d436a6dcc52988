package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propdesk/journal"
	"github.com/rustyeddy/propdesk/risk"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Provision or inspect the desk account",
	Long: `Manage the desk account row orders are placed against.

Subcommands:
  set  - Create or update the account from config and flags
  show - Print the journaled account

Examples:
  propdesk account set --broker-account 101-001-1234567-001 --size 100000 --status active
  propdesk account show`,
}

var accountSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update the desk account",
	RunE:  runAccountSet,
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the desk account",
	RunE:  runAccountShow,
}

var (
	accountFlagID     string
	accountBrokerID   string
	accountTier       string
	accountSize       float64
	accountBalance    float64
	accountStatus     string
	accountFromBroker bool
)

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountSetCmd)
	accountCmd.AddCommand(accountShowCmd)

	accountCmd.PersistentFlags().StringVar(&accountFlagID, "account", "", "desk account id (defaults to account.id)")

	accountSetCmd.Flags().StringVar(&accountBrokerID, "broker-account", "", "OANDA account id")
	accountSetCmd.Flags().StringVar(&accountTier, "tier", "", "standard or pro")
	accountSetCmd.Flags().Float64Var(&accountSize, "size", 0, "account size the risk budget is based on")
	accountSetCmd.Flags().Float64Var(&accountBalance, "balance", 0, "current balance")
	accountSetCmd.Flags().StringVar(&accountStatus, "status", journal.AccountActive, "active or pending")
	accountSetCmd.Flags().BoolVar(&accountFromBroker, "sync-balance", false, "read the current balance from the broker")
}

func runAccountSet(cmd *cobra.Command, args []string) error {
	a := journal.Account{
		ID:              accountID(accountFlagID),
		BrokerAccountID: cfg.Account.BrokerAccountID,
		Currency:        cfg.Account.Currency,
		Tier:            cfg.Account.Tier,
		AccountSize:     cfg.Account.AccountSize,
		CurrentBalance:  cfg.Account.CurrentBalance,
		Status:          accountStatus,
	}
	if accountBrokerID != "" {
		a.BrokerAccountID = accountBrokerID
	}
	if accountTier != "" {
		a.Tier = string(risk.ParseTier(accountTier))
	}
	if accountSize > 0 {
		a.AccountSize = accountSize
	}
	if accountBalance > 0 {
		a.CurrentBalance = accountBalance
	}
	switch a.Status {
	case journal.AccountActive, journal.AccountPending:
	default:
		return fmt.Errorf("status must be %q or %q", journal.AccountActive, journal.AccountPending)
	}

	ctx := context.Background()
	if accountFromBroker {
		if a.BrokerAccountID == "" {
			return errors.New("--sync-balance needs a broker account")
		}
		b, err := newBroker()
		if err != nil {
			return err
		}
		ba, err := b.GetAccount(ctx, a.BrokerAccountID)
		if err != nil {
			return fmt.Errorf("broker account: %w", err)
		}
		a.CurrentBalance = ba.Balance
		if ba.Currency != "" {
			a.Currency = ba.Currency
		}
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.UpsertAccount(ctx, a); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Account %s saved (%s)\n", a.ID, a.Status)
	return nil
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	a, err := j.GetAccount(context.Background(), accountID(accountFlagID))
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Account:         %s\n", a.ID)
	fmt.Fprintf(out, "Broker account:  %s\n", orNone(a.BrokerAccountID))
	fmt.Fprintf(out, "Status:          %s\n", a.Status)
	fmt.Fprintf(out, "Tier:            %s\n", risk.ParseTier(a.Tier))
	fmt.Fprintf(out, "Account size:    %.2f %s\n", a.AccountSize, a.Currency)
	fmt.Fprintf(out, "Current balance: %.2f %s\n", a.CurrentBalance, a.Currency)
	fmt.Fprintf(out, "Updated:         %s\n", a.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
