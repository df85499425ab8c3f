package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/eventworker/config"
	"sjsage522/eventworker/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "eventworker",
	Short: "eventworker collects public event listings and notifies new ones to Telegram.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load environment variables
		godotenv.Load()

		// Initialize logger first
		logger.Init()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, json or toml)")
}

// loadConfig loads the configuration and, when strict, validates it.
func loadConfig(strict bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if strict {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
