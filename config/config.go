package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/propdesk/market"
	"github.com/rustyeddy/propdesk/risk"
)

// Config represents the complete desk configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Risk    RiskConfig    `json:"risk" yaml:"risk"`
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Session SessionConfig `json:"session" yaml:"session"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig describes the desk account orders are placed for
type AccountConfig struct {
	ID              string  `json:"id" yaml:"id"`
	BrokerAccountID string  `json:"broker_account_id" yaml:"broker_account_id"`
	Currency        string  `json:"currency" yaml:"currency"`
	Tier            string  `json:"tier" yaml:"tier"`
	AccountSize     float64 `json:"account_size" yaml:"account_size"`
	CurrentBalance  float64 `json:"current_balance" yaml:"current_balance"`
}

// RiskConfig contains sizing parameters and pre-trade limits
type RiskConfig struct {
	RiskFraction  float64 `json:"risk_fraction" yaml:"risk_fraction"`
	StopPips      float64 `json:"stop_pips" yaml:"stop_pips"`
	PriceSource   string  `json:"price_source" yaml:"price_source"` // mid, bid or ask
	MaxRiskPct    float64 `json:"max_risk_pct,omitempty" yaml:"max_risk_pct,omitempty"`
	MinRR         float64 `json:"min_rr,omitempty" yaml:"min_rr,omitempty"`
	MaxOpenTrades int     `json:"max_open_trades,omitempty" yaml:"max_open_trades,omitempty"`
	AllowApprox   bool    `json:"allow_approx" yaml:"allow_approx"`
}

// BrokerConfig selects the OANDA environment
type BrokerConfig struct {
	Environment string  `json:"environment" yaml:"environment"` // practice or live
	TokenEnv    string  `json:"token_env" yaml:"token_env"`
	Timeout     string  `json:"timeout" yaml:"timeout"` // e.g. "30s"
	RateLimit   float64 `json:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	AllowLive   bool    `json:"allow_live" yaml:"allow_live"`
}

// SessionConfig controls the one-trade-per-session limit
type SessionConfig struct {
	Enforce bool `json:"enforce" yaml:"enforce"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON). Fields the
// file leaves out keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("OANDA_ENVIRONMENT"); v != "" {
		c.Broker.Environment = strings.ToLower(v)
	}
	if v := getenv("OANDA_ACCOUNT_ID"); v != "" {
		c.Account.BrokerAccountID = v
	}
	if v, err := strconv.ParseBool(getenv("ALLOW_MULTIPLE_TRADES")); err == nil && v {
		c.Session.Enforce = false
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Account.Currency) != 3 {
		return fmt.Errorf("account.currency must be a 3-letter code")
	}
	if c.Account.Tier != "" && c.Account.Tier != string(risk.Standard) && c.Account.Tier != string(risk.Pro) {
		return fmt.Errorf("account.tier must be 'standard' or 'pro'")
	}
	if c.Account.AccountSize < 0 || c.Account.CurrentBalance < 0 {
		return fmt.Errorf("account sizes must not be negative")
	}
	if c.Risk.RiskFraction <= 0 || c.Risk.RiskFraction > 1 {
		return fmt.Errorf("risk.risk_fraction must be in (0, 1]")
	}
	if c.Risk.StopPips <= 0 {
		return fmt.Errorf("risk.stop_pips must be positive")
	}
	if _, err := market.ParsePriceSource(c.Risk.PriceSource); err != nil {
		return fmt.Errorf("risk.price_source: %w", err)
	}
	if c.Risk.MaxRiskPct < 0 || c.Risk.MinRR < 0 || c.Risk.MaxOpenTrades < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}
	switch c.Broker.Environment {
	case "practice":
	case "live":
		if !c.Broker.AllowLive {
			return fmt.Errorf("broker.environment 'live' requires broker.allow_live")
		}
	default:
		return fmt.Errorf("broker.environment must be 'practice' or 'live'")
	}
	if c.Broker.TokenEnv == "" {
		return fmt.Errorf("broker.token_env is required")
	}
	if c.Broker.RateLimit < 0 {
		return fmt.Errorf("broker.rate_limit must not be negative")
	}
	if _, err := c.Broker.TimeoutDuration(); err != nil {
		return fmt.Errorf("broker.timeout: %w", err)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means no override.
func (b BrokerConfig) TimeoutDuration() (time.Duration, error) {
	if b.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(b.Timeout)
}

func (b BrokerConfig) Practice() bool {
	return b.Environment != "live"
}

// Token reads the API token from the configured environment variable.
func (b BrokerConfig) Token(getenv func(string) string) string {
	return getenv(b.TokenEnv)
}

// Policy converts the limits for risk.Evaluate.
func (r RiskConfig) Policy() risk.Policy {
	return risk.Policy{
		MaxRiskPct:    r.MaxRiskPct,
		MinRR:         r.MinRR,
		MaxOpenTrades: r.MaxOpenTrades,
		AllowApprox:   r.AllowApprox,
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "desk-001",
			Currency: "USD",
			Tier:     string(risk.Standard),
		},
		Risk: RiskConfig{
			RiskFraction: risk.DefaultRiskFraction,
			StopPips:     risk.DefaultStopPips,
			PriceSource:  string(market.MidSource),
			AllowApprox:  true,
		},
		Broker: BrokerConfig{
			Environment: "practice",
			TokenEnv:    "OANDA_TOKEN",
			Timeout:     "30s",
			RateLimit:   100,
		},
		Session: SessionConfig{
			Enforce: true,
		},
		Journal: JournalConfig{
			DBPath: "./propdesk.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
