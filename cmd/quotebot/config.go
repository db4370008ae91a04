package main

import (
	"fmt"

	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect quotebot configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and report every error found.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if errs := cfg.Validate(); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
			}
			return fmt.Errorf("config validation failed: %d errors", len(errs))
		}

		fmt.Fprintf(out, "Configuration %s is valid\n", path)
		if cfg.Telegram.Enabled {
			fmt.Fprintf(out, "  telegram: chat %d, token %s\n",
				cfg.Telegram.ChatID, config.MaskTelegramToken(cfg.Telegram.Token))
		} else {
			fmt.Fprintln(out, "  telegram: disabled (dry run)")
		}
		fmt.Fprintf(out, "  store: %s\n", cfg.StorePath())
		fmt.Fprintf(out, "  tracking: %s\n", cfg.Tracking.Driver)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
