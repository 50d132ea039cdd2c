package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

// ErrNotOwner is returned when a non-admin edits someone else's expense.
var ErrNotOwner = fmt.Errorf("expense belongs to another user: %w", httpx.ErrUnauthorized)

type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	cache  shared.CacheBumper
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, audit shared.AuditRecorder, cache shared.CacheBumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*Expense, error) {
	return s.repo.Get(ctx, id)
}

// Create records an expense owned by actor. Date defaults to today.
func (s *Service) Create(ctx context.Context, req ExpenseRequest, actor shared.Actor) (*Expense, error) {
	e, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	e.UserID = actor.UserID
	id, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	shared.BumpCache(ctx, s.cache, s.logger)
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req ExpenseRequest, actor shared.Actor) (*Expense, error) {
	if _, err := s.owned(ctx, id, actor); err != nil {
		return nil, err
	}
	e, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, e); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	shared.BumpCache(ctx, s.cache, s.logger)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	existing, err := s.owned(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditDelete,
		Entity:   "expense",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"owner": existing.UserID, "amount": existing.Amount.String()},
	})
	shared.BumpCache(ctx, s.cache, s.logger)
	return nil
}

// owned loads the expense and checks that actor may change it.
func (s *Service) owned(ctx context.Context, id int64, actor shared.Actor) (*Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != actor.UserID && actor.Role != shared.RoleAdmin {
		return nil, ErrNotOwner
	}
	return e, nil
}

func (s *Service) fromRequest(req ExpenseRequest) (Expense, error) {
	e := Expense{
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount.Round(salesshared.MoneyPlaces),
		Category:    strings.TrimSpace(req.Category),
		Date:        salesshared.Today(s.now()),
	}
	if !e.Amount.Equal(*req.Amount) {
		return Expense{}, httpx.Invalid("amount", "debe tener como máximo dos decimales")
	}
	date, err := httpx.ParseDate("date", req.Date)
	if err != nil {
		return Expense{}, err
	}
	if date != nil {
		e.Date = *date
	}
	return e, nil
}
