package analytics

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mipyme/backoffice/internal/ar"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
)

// Service coordinates dashboard queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Dashboard returns the cached summary for today, building it at most once
// per cache version across concurrent callers.
func (s *Service) Dashboard(ctx context.Context) (Summary, error) {
	today := salesshared.Today(s.now())
	key, err := s.cache.BuildKey(ctx, "dashboard", today.Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("dashboard cache key", slog.Any("error", err))
		return s.build(ctx, today)
	}
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var summary Summary
		err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
			return s.build(ctx, today)
		})
		return summary, err
	})
	if err != nil {
		return Summary{}, err
	}
	return result.(Summary), nil
}

// Warm builds the summary for the current cache version if it is missing.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Dashboard(ctx)
	return err
}

func (s *Service) build(ctx context.Context, today time.Time) (Summary, error) {
	summary := Summary{GeneratedAt: s.now().UTC()}
	var (
		recent      []invoiceRow
		outstanding []ar.Outstanding
	)
	from, to := monthBounds(today)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary.Counts, err = s.repo.Counts(ctx)
		return err
	})
	g.Go(func() (err error) {
		summary.TotalRevenue, err = s.repo.Revenue(ctx)
		return err
	})
	g.Go(func() (err error) {
		summary.PendingInvoices, err = s.repo.Pending(ctx)
		return err
	})
	g.Go(func() (err error) {
		summary.MonthExpenses, err = s.repo.ExpensesBetween(ctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.repo.RecentInvoices(ctx, recentInvoiceLimit)
		return err
	})
	g.Go(func() (err error) {
		outstanding, err = s.repo.Outstanding(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary.RecentInvoices = make([]RecentInvoice, 0, len(recent))
	for _, row := range recent {
		inv := row.RecentInvoice
		inv.Status = ar.DeriveStatus(inv.Paid, inv.Total, inv.DueDate, today, row.Cancelled)
		summary.RecentInvoices = append(summary.RecentInvoices, inv)
	}
	summary.Aging = ar.BucketAging(outstanding, today)
	return summary, nil
}
