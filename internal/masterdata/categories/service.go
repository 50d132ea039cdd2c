package categories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mipyme/backoffice/internal/platform/httpx"
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

func (s *Service) List(ctx context.Context, params httpx.PageParams) ([]Category, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CategoryRequest) (*Category, error) {
	category := fromRequest(req)
	taken, err := s.repo.NameTaken(ctx, category.Name, 0)
	if err != nil {
		return nil, fmt.Errorf("check category name: %w", err)
	}
	if taken {
		return nil, ErrDuplicateName
	}
	return s.repo.Create(ctx, category)
}

func (s *Service) Update(ctx context.Context, id int64, req CategoryRequest) (*Category, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	category := fromRequest(req)
	taken, err := s.repo.NameTaken(ctx, category.Name, id)
	if err != nil {
		return nil, fmt.Errorf("check category name: %w", err)
	}
	if taken {
		return nil, ErrDuplicateName
	}
	return s.repo.Update(ctx, id, category)
}

// Delete removes the category and clears it from its products in one transaction.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	var detached int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		var err error
		if detached, err = repo.DetachProducts(ctx, id); err != nil {
			return fmt.Errorf("detach products: %w", err)
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
			Entity:   "category",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"detached_products": detached},
		}); err != nil {
			s.logger.Warn("audit category delete", slog.Any("error", err))
		}
	}
	return nil
}

func fromRequest(req CategoryRequest) Category {
	c := Category{Name: strings.TrimSpace(req.Name)}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		c.Description = &desc
	}
	return c
}
