package jobs

import (
	"log/slog"
	"time"

	jobmetrics "github.com/mipyme/backoffice/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Runtime carries the ambient dependencies every job handler shares.
type Runtime struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Clock   func() time.Time
}

func (r Runtime) logger(job string) *slog.Logger {
	if r.Logger != nil {
		return r.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (r Runtime) metrics() *jobmetrics.Metrics {
	if r.Metrics != nil {
		return r.Metrics
	}
	return defaultJobMetrics
}

func (r Runtime) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
