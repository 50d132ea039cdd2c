package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mipyme/backoffice/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "backofficectl",
	Short: "Operator tooling for the back office",
	Long: `backofficectl triggers background jobs, inspects the job queues and loads
the demo data set.

Configuration is read from the same environment variables as the server
(a .env file in the working directory is honoured).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, app.NewLogger(cfg, "ctl"), nil
}

func init() {
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address (overrides REDIS_ADDR)")
}
