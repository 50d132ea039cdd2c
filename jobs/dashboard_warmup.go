package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DashboardWarmer rebuilds the cached dashboard summary.
type DashboardWarmer interface {
	Warm(ctx context.Context) error
}

// DashboardWarmupJob pre-populates the dashboard cache after a bump or on schedule.
type DashboardWarmupJob struct {
	Runtime
	Dashboard DashboardWarmer
	Timeout   time.Duration
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dashboard DashboardWarmer, rt Runtime) *DashboardWarmupJob {
	return &DashboardWarmupJob{Runtime: rt, Dashboard: dashboard, Timeout: 20 * time.Second}
}

// Handle processes TaskDashboardWarmup.
func (j *DashboardWarmupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() { err = tracker.End(err) }()

	logger := j.logger(TaskDashboardWarmup)
	started := j.now()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Dashboard.Warm(ctx); err != nil {
		logger.Error("warm dashboard", slog.Any("error", err))
		return err
	}
	logger.Info("dashboard warmed", slog.Duration("duration", j.now().Sub(started)))
	return nil
}
