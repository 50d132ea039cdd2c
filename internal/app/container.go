package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mipyme/backoffice/internal/analytics"
	"github.com/mipyme/backoffice/internal/ar"
	"github.com/mipyme/backoffice/internal/auth"
	"github.com/mipyme/backoffice/internal/expenses"
	"github.com/mipyme/backoffice/internal/masterdata/categories"
	"github.com/mipyme/backoffice/internal/masterdata/companies"
	"github.com/mipyme/backoffice/internal/masterdata/products"
	"github.com/mipyme/backoffice/internal/observability"
	"github.com/mipyme/backoffice/internal/platform/cache"
	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/rbac"
	"github.com/mipyme/backoffice/internal/sales/customers"
	"github.com/mipyme/backoffice/internal/sales/quotations"
	"github.com/mipyme/backoffice/internal/shared"
	"github.com/mipyme/backoffice/internal/users"
)

// Services is the wired set of domain services shared by the server, the
// worker and the operator CLI.
type Services struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics

	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore
	Dashboard   *analytics.Cache
	RBAC        *rbac.Service

	Auth       *auth.Service
	Users      *users.Service
	Companies  *companies.Service
	Categories *categories.Service
	Products   *products.Service
	Customers  *customers.Service
	Quotes     *quotations.Service
	Invoices   *ar.Service
	Expenses   *expenses.Service
	Analytics  *analytics.Service
}

// Connect opens PostgreSQL and Redis, then wires every service. The notifier
// receives payment receipts; nil disables them.
func Connect(ctx context.Context, cfg *Config, logger *slog.Logger, notifier ar.ReceiptNotifier) (*Services, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	return Wire(pool, redisClient, cfg, logger, notifier), nil
}

// Wire builds the services on top of open connections.
func Wire(pool *pgxpool.Pool, redisClient *redis.Client, cfg *Config, logger *slog.Logger, notifier ar.ReceiptNotifier) *Services {
	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)
	dashboardCache := analytics.NewCache(redisClient, cfg.DashboardCacheTTL)
	companySvc := companies.NewService(companies.NewRepository(pool))

	invoices := ar.NewService(ar.NewRepository(pool), companySvc, ar.Options{
		DefaultDueDays:    cfg.BillingDefaultDueDays,
		RejectOverpayment: cfg.BillingRejectOverpayment,
		Notifier:          notifier,
		Audit:             audit,
		Cache:             dashboardCache,
		Metrics:           metrics.Billing(),
		Logger:            logger,
	})
	quotes := quotations.NewService(quotations.NewRepository(pool), companySvc, quotations.Options{
		DefaultValidDays: cfg.QuoteDefaultValidDays,
		Invoices:         invoices,
		Audit:            audit,
		Cache:            dashboardCache,
		Metrics:          metrics.Billing(),
		Logger:           logger,
	})

	return &Services{
		Pool:        pool,
		Redis:       redisClient,
		Metrics:     metrics,
		Audit:       audit,
		Idempotency: shared.NewIdempotencyStore(pool),
		Dashboard:   dashboardCache,
		RBAC:        rbac.NewService(pool),
		Auth:        auth.NewService(auth.NewRepository(pool)),
		Users:       users.NewService(users.NewRepository(pool), audit, logger),
		Companies:   companySvc,
		Categories:  categories.NewService(categories.NewRepository(pool), audit, logger),
		Products:    products.NewService(products.NewRepository(pool), audit, logger),
		Customers:   customers.NewService(customers.NewRepository(pool), audit, logger),
		Quotes:      quotes,
		Invoices:    invoices,
		Expenses:    expenses.NewService(expenses.NewRepository(pool), audit, dashboardCache, logger),
		Analytics:   analytics.NewService(analytics.NewRepository(pool), dashboardCache, logger),
	}
}

// Close releases the connections.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}
