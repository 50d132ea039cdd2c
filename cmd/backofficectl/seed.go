package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mipyme/backoffice/internal/app"
	"github.com/mipyme/backoffice/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo data set",
	Long: `Load the demo company, catalog, customers, quotes, invoices and expenses.

Data is written through the domain services, so document numbers, totals and
statuses are derived exactly as the API would derive them. The command refuses
to run twice against the same database.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("redis-addr"); addr != "" {
		cfg.RedisAddr = addr
	}
	ctx := cmd.Context()
	services, err := app.Connect(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer services.Close()

	res, err := seed.Run(ctx, seed.Targets{
		Users:      services.Users,
		Company:    services.Companies,
		Categories: services.Categories,
		Products:   services.Products,
		Customers:  services.Customers,
		Quotes:     services.Quotes,
		Invoices:   services.Invoices,
		Expenses:   services.Expenses,
	}, time.Now(), logger)
	if errors.Is(err, seed.ErrAlreadySeeded) {
		logger.Warn("seed skipped", slog.String("reason", err.Error()))
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "categories: %d, products: %d, customers: %d\n", res.Categories, res.Products, res.Customers)
	fmt.Fprintf(out, "quotes: %v\n", res.Quotes)
	fmt.Fprintf(out, "invoices: %v (payments: %d)\n", res.Invoices, res.Payments)
	fmt.Fprintf(out, "expenses: %d\n", res.Expenses)
	fmt.Fprintf(out, "admin: %s / %s\n", seed.AdminEmail, seed.AdminPassword)
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
