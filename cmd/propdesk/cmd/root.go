package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/propdesk/config"
	"github.com/rustyeddy/propdesk/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "propdesk",
	Short: "Risk-sized FX order placement and trade history for OANDA accounts",
	Long: `Propdesk sizes and places bracketed FX market orders on OANDA and
rebuilds trade history from the account's transaction log.

It provides tools for:
  - Fixed-fraction position sizing with tier stop and target distances
  - Placing fill-or-kill market orders with stop loss and take profit
  - One trade per session enforcement
  - Reconstructing trade history from transactions or trade summaries
  - Journaling every order attempt in SQLite

Configuration is read from --config (YAML or JSON), then .env, then the
environment (OANDA_TOKEN, OANDA_ENVIRONMENT, OANDA_ACCOUNT_ID,
ALLOW_MULTIPLE_TRADES).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile  string
	envFile  string
	logLevel string
	pretty   bool

	cfg    *config.Config
	logger zerolog.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")
}

func setup(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
		c = loaded
	}
	c.ApplyEnv(os.Getenv)
	cfg = c

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger = logging.New(logging.Options{
		Level:  level,
		Pretty: pretty || cfg.Log.Pretty,
		Out:    cmd.ErrOrStderr(),
	})
	return nil
}
