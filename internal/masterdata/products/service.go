package products

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req ProductRequest) (*Product, error) {
	product := fromRequest(req)
	if err := s.checkReferences(ctx, product, 0); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req ProductRequest) (*Product, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	product := fromRequest(req)
	if err := s.checkReferences(ctx, product, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Delete refuses products referenced by quote or invoice lines.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	var sku string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		product, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		sku = product.SKU
		referenced, err := repo.IsReferenced(ctx, id)
		if err != nil {
			return fmt.Errorf("check product references: %w", err)
		}
		if referenced {
			return ErrInUse
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditDelete,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"sku": sku},
	})
	return nil
}

func (s *Service) checkReferences(ctx context.Context, product Product, excludeID int64) error {
	taken, err := s.repo.SKUTaken(ctx, product.SKU, excludeID)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if taken {
		return ErrDuplicateSKU
	}
	if product.CategoryID != nil {
		exists, err := s.repo.CategoryExists(ctx, *product.CategoryID)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !exists {
			return ErrUnknownCategory
		}
	}
	return nil
}

func fromRequest(req ProductRequest) Product {
	p := Product{
		Name:       strings.TrimSpace(req.Name),
		SKU:        strings.TrimSpace(req.SKU),
		Price:      *req.Price,
		Cost:       decimal.Zero,
		Status:     salesshared.StatusActive,
		CategoryID: req.CategoryID,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		p.Description = &desc
	}
	if req.Cost != nil {
		p.Cost = *req.Cost
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Status != "" {
		p.Status = req.Status
	}
	return p
}
