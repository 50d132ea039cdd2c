package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
)

// Service reads user roles from PostgreSQL.
type Service struct {
	db db.DBTX
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{db: pool}
}

// CurrentRole returns the role of an active user. Missing or inactive users
// are unauthorized.
func (s *Service) CurrentRole(ctx context.Context, userID int64) (shared.Role, error) {
	var (
		role   string
		active bool
	)
	err := s.db.QueryRow(ctx, `SELECT role, is_active FROM users WHERE id = $1`, userID).Scan(&role, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", httpx.ErrUnauthorized
		}
		return "", fmt.Errorf("rbac: load role: %w", err)
	}
	if !active {
		return "", httpx.ErrUnauthorized
	}
	return shared.Role(role), nil
}
