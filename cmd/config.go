package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evnav/config"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Load, validate and print the configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		redact(cfg)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func redact(cfg *config.Config) {
	for _, s := range []*string{
		&cfg.MQTT.Password,
		&cfg.Store.PostgresDSN,
		&cfg.Redis.Password,
		&cfg.Routing.APIKey,
		&cfg.Routing.Auth.ClientSecret,
		&cfg.Sentry.DSN,
	} {
		if *s != "" {
			*s = redacted
		}
	}
}
