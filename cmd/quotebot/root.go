package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/aatumaykin/quotebot/internal/constants"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quotebot",
	Short: "Quotebot - scheduled quote delivery",
	Long: `Quotebot delivers quotes to a Telegram chat on cron schedules.
Each send fires after a random delay and no quote repeats until every
eligible quote of the schedule has been sent.`,
	Version:       Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", constants.DefaultEnvPath, "path to .env file")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quotesCmd)
	rootCmd.AddCommand(schedulesCmd)
	rootCmd.AddCommand(importCmd)
}

// loadConfig reads .env and the config file. A missing config at the
// default path falls back to built-in defaults so that management commands
// work without one.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvOptional(envPath); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	explicit := cmd.Flags().Changed("config")
	if !explicit {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}

	return config.Load(configPath)
}

// newLogger builds the logger described by cfg.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// openStore loads the configuration and opens the quote store it points to.
func openStore(ctx context.Context, cmd *cobra.Command) (*store.SQLite, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, cfg.StorePath(), logger.Nop())
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}
