package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mipyme/backoffice/internal/app"
	"github.com/mipyme/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg, "worker")

	redisOpts := cfg.Redis().Asynq()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	services, err := app.Connect(ctx, cfg, logger, jobClient)
	if err != nil {
		logger.Error("connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", slog.Any("error", err))
		}
	}()

	rt := jobs.Runtime{Logger: logger, Metrics: services.Metrics.Jobs()}
	mailer := jobs.NewMailer(jobs.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)

	statusJob := jobs.NewInvoiceStatusJob(services.Invoices, rt)
	expiryJob := jobs.NewQuoteExpiryJob(services.Quotes, rt)
	warmupJob := jobs.NewDashboardWarmupJob(services.Analytics, rt)
	cleanupJob := jobs.NewIdempotencyCleanupJob(services.Idempotency, rt)
	receiptJob := jobs.NewPaymentReceiptJob(services.Invoices, services.Companies, mailer, rt)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRefreshInvoiceStatus, Handler: statusJob.Handle},
			{Type: jobs.TaskExpireQuotes, Handler: expiryJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
			{Type: jobs.TaskPaymentReceipt, Handler: receiptJob.Handle},
		},
		Cron: jobs.Schedule(),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Every cache bump from the API triggers a rebuild so the next dashboard
	// read is served warm.
	go func() {
		err := services.Dashboard.ListenForInvalidation(ctx, func(version int64) {
			if err := jobClient.EnqueueDashboardWarmup(ctx); err != nil {
				logger.Warn("enqueue dashboard warmup", slog.Int64("version", version), slog.Any("error", err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("dashboard invalidation listener", slog.Any("error", err))
		}
	}()

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: services.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
