package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// InvoiceRefresher persists the effective status of open invoices.
type InvoiceRefresher interface {
	RefreshStatuses(ctx context.Context, now time.Time) (int64, error)
}

// QuoteExpirer marks quotes past their validity as EXPIRED.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// KeyCleaner drops processed idempotency keys.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// InvoiceStatusJob moves unpaid invoices past due to OVERDUE.
type InvoiceStatusJob struct {
	Runtime
	Invoices InvoiceRefresher
}

func NewInvoiceStatusJob(invoices InvoiceRefresher, rt Runtime) *InvoiceStatusJob {
	return &InvoiceStatusJob{Runtime: rt, Invoices: invoices}
}

// Handle processes TaskRefreshInvoiceStatus.
func (j *InvoiceStatusJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Invoices == nil {
		return errors.New("invoice status: handler not configured")
	}
	tracker := j.metrics().Track(TaskRefreshInvoiceStatus)
	defer func() { err = tracker.End(err) }()

	changed, err := j.Invoices.RefreshStatuses(ctx, j.now())
	if err != nil {
		j.logger(TaskRefreshInvoiceStatus).Error("refresh invoice status", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskRefreshInvoiceStatus, changed)
	j.logger(TaskRefreshInvoiceStatus).Info("invoice statuses refreshed", slog.Int64("changed", changed))
	return nil
}

// QuoteExpiryJob persists EXPIRED on quotes whose validity has passed.
type QuoteExpiryJob struct {
	Runtime
	Quotes QuoteExpirer
}

func NewQuoteExpiryJob(quotes QuoteExpirer, rt Runtime) *QuoteExpiryJob {
	return &QuoteExpiryJob{Runtime: rt, Quotes: quotes}
}

// Handle processes TaskExpireQuotes.
func (j *QuoteExpiryJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Quotes == nil {
		return errors.New("quote expiry: handler not configured")
	}
	tracker := j.metrics().Track(TaskExpireQuotes)
	defer func() { err = tracker.End(err) }()

	expired, err := j.Quotes.ExpireOverdue(ctx, j.now())
	if err != nil {
		j.logger(TaskExpireQuotes).Error("expire quotes", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskExpireQuotes, expired)
	j.logger(TaskExpireQuotes).Info("quotes expired", slog.Int64("expired", expired))
	return nil
}

// IdempotencyCleanupJob removes request keys past the retention window.
type IdempotencyCleanupJob struct {
	Runtime
	Keys KeyCleaner
}

func NewIdempotencyCleanupJob(keys KeyCleaner, rt Runtime) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Runtime: rt, Keys: keys}
}

// Handle processes TaskIdempotencyCleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics().Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	removed, err := j.Keys.Cleanup(ctx, payload.retention())
	if err != nil {
		j.logger(TaskIdempotencyCleanup).Error("cleanup idempotency keys", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskIdempotencyCleanup, removed)
	j.logger(TaskIdempotencyCleanup).Info("idempotency keys removed", slog.Int64("removed", removed), slog.Duration("retention", payload.retention()))
	return nil
}
