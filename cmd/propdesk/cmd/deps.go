package cmd

import (
	"fmt"
	"os"

	"github.com/rustyeddy/propdesk/broker"
	"github.com/rustyeddy/propdesk/desk"
	"github.com/rustyeddy/propdesk/journal"
	"github.com/rustyeddy/propdesk/market"
	"github.com/rustyeddy/propdesk/oanda"
)

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", cfg.Journal.DBPath, err)
	}
	return j, nil
}

func newBroker() (*oanda.Client, error) {
	token := cfg.Broker.Token(os.Getenv)
	if token == "" {
		return nil, fmt.Errorf("no API token: set %s", cfg.Broker.TokenEnv)
	}
	timeout, err := cfg.Broker.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return oanda.NewClient(token, cfg.Broker.Practice()).
		WithTimeout(timeout).
		WithRateLimit(cfg.Broker.RateLimit).
		WithLogger(logger), nil
}

func newDesk(b broker.Broker, s desk.Store) (*desk.Desk, error) {
	src, err := market.ParsePriceSource(cfg.Risk.PriceSource)
	if err != nil {
		return nil, err
	}
	o := desk.Options{
		PriceSource:    src,
		RiskFraction:   cfg.Risk.RiskFraction,
		StopPips:       cfg.Risk.StopPips,
		EnforceSession: cfg.Session.Enforce,
		Logger:         logger,
	}
	if p := cfg.Risk.Policy(); p.MaxRiskPct > 0 || p.MinRR > 0 || p.MaxOpenTrades > 0 || !p.AllowApprox {
		o.Policy = &p
	}
	return desk.New(b, s, o), nil
}

func accountID(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Account.ID
}
