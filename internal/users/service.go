package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
)

// ErrLastAdmin keeps at least one active administrator.
var ErrLastAdmin = httpx.Rule(httpx.CodeInvalidTransition, "Debe existir al menos un administrador activo")

// Service handles user business logic.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
	cost   int
}

// NewService builds Service instance.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, cost: bcrypt.DefaultCost}
}

// HashPassword hashes a plain password with the service cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers an active user. Email is unique case-insensitively.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, actor shared.Actor) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrDuplicateEmail
	}
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, User{
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
		IsActive: true,
	}, hash)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditCreate,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"email": email, "role": string(req.Role)},
	})
	return s.repo.Get(ctx, id)
}

// Update applies the provided fields. Demoting or deactivating the last
// active admin is refused.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest, actor shared.Actor) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasAdmin := u.Role == shared.RoleAdmin && u.IsActive
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if wasAdmin && (u.Role != shared.RoleAdmin || !u.IsActive) {
		admins, err := s.repo.CountActiveAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return nil, ErrLastAdmin
		}
	}
	if err := s.repo.Update(ctx, *u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if req.Password != nil {
		hash, err := s.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetPassword(ctx, id, hash); err != nil {
			return nil, fmt.Errorf("set password: %w", err)
		}
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditUpdate,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"role": string(u.Role), "active": u.IsActive, "password_changed": req.Password != nil},
	})
	return s.repo.Get(ctx, id)
}
