package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	return s.repo.List(ctx, filter)
}

// Get returns the customer with its latest quotes and invoices.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	customer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	quotes, err := s.repo.RecentQuotes(ctx, id, recentDocuments)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.RecentInvoices(ctx, id, recentDocuments)
	if err != nil {
		return nil, err
	}
	return &Detail{Customer: *customer, Quotes: quotes, Invoices: invoices}, nil
}

func (s *Service) Create(ctx context.Context, req CustomerRequest) (*Customer, error) {
	id, err := s.repo.Create(ctx, fromRequest(req))
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req CustomerRequest) (*Customer, error) {
	if err := s.repo.Update(ctx, id, fromRequest(req)); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Delete refuses customers that have quotes or invoices.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	var name string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		name = customer.Name
		referenced, err := repo.IsReferenced(ctx, id)
		if err != nil {
			return fmt.Errorf("check customer references: %w", err)
		}
		if referenced {
			return ErrInUse
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   shared.AuditDelete,
			Entity:   "customer",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"name": name},
		}); err != nil {
			s.logger.Warn("audit customer delete", slog.Any("error", err))
		}
	}
	return nil
}

func fromRequest(req CustomerRequest) Customer {
	c := Customer{
		Name:    strings.TrimSpace(req.Name),
		TaxID:   optional(req.TaxID),
		Email:   optional(strings.ToLower(req.Email)),
		Phone:   optional(req.Phone),
		Address: optional(req.Address),
		Status:  salesshared.StatusActive,
	}
	if req.Status != "" {
		c.Status = req.Status
	}
	return c
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
