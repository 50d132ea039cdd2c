package shared

import (
	"context"
	"log/slog"
)

// CacheBumper invalidates cached read models after writes that change them.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// BumpCache invalidates c, logging failures. A nil bumper is ignored.
func BumpCache(ctx context.Context, c CacheBumper, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Bump(ctx); err != nil && logger != nil {
		logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

// RecordAudit writes an audit entry, logging failures. A nil recorder is ignored.
func RecordAudit(ctx context.Context, audit AuditRecorder, logger *slog.Logger, log AuditLog) {
	if audit == nil {
		return
	}
	if err := audit.Record(ctx, log); err != nil && logger != nil {
		logger.Warn("audit record failed", slog.String("entity", log.Entity), slog.String("action", log.Action), slog.Any("error", err))
	}
}
