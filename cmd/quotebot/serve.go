package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/quotebot/internal/app"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/version"
	"github.com/spf13/cobra"
)

var serveLogLevel string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quote delivery bot (main command)",
	Long: `Start quotebot with the specified configuration.
This imports the seed file, restores pending deliveries, starts the
reconciliation loop and handles graceful shutdown on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: serveHandler,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

func serveHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
		}
		return fmt.Errorf("configuration validation failed: %d errors", len(errs))
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting quotebot",
		logger.Field{Key: "build", Value: version.String()},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "data_dir", Value: cfg.Data.Dir},
		logger.Field{Key: "tracking", Value: cfg.Tracking.Driver},
		logger.Field{Key: "telegram", Value: cfg.Telegram.Enabled})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.New(cfg, log).Run(ctx)
}
