package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/assistant"
	"github.com/rustyeddy/tradelog/config"
	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/llm"
	"github.com/rustyeddy/tradelog/logger"
	"github.com/rustyeddy/tradelog/tracker"
)

var rootCmd = &cobra.Command{
	Use:   "tradelog",
	Short: "A trading journal with session statistics and an AI assistant",
	Long: `Tradelog records trades inside named sessions, keeps each session's
capital in step with its trades and derives performance statistics.

It provides tools for:
  - Creating sessions and recording trades
  - Session statistics, daily performance and capital curves
  - Exporting sessions as JSON, CSV or Org
  - Chatting with an assistant about your trading history
  - Serving all of the above over an HTTP/JSON API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}
		c, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dbPath != "" {
			c.Store.DBPath = dbPath
		}
		cfg = c
		return logger.Init(cfg.Log)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Shutdown(context.Background())
	},
}

var (
	cfgFile string
	envFile string
	dbPath  string
	userID  string

	// cfg is loaded before any subcommand runs.
	cfg = config.Default()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with secrets")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (overrides store.db_path)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", defaultUser(), "user the sessions belong to")
}

func defaultUser() string {
	if u := os.Getenv("TRADELOG_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// openTracker opens the configured store. Callers close the store.
func openTracker() (*tracker.Tracker, journal.Store, error) {
	store, err := journal.NewSQLite(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	loc, err := cfg.Server.Location()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("timezone: %w", err)
	}
	return tracker.New(store, tracker.WithLocation(loc)), store, nil
}

func newAssistant(store journal.Store) *assistant.Assistant {
	return assistant.New(store, llm.NewClient(cfg.LLM),
		assistant.WithPersona(cfg.Assistant.Name),
		assistant.WithLimits(cfg.Assistant.RecentSessions, cfg.Assistant.RecentTrades),
		assistant.WithQuotes(assistant.NewQuotes(cfg.Assistant.QuotesURL, 0)),
	)
}
