package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

var (
	ErrNotFound       = httpx.NotFound("Usuario no encontrado")
	ErrDuplicateEmail = httpx.Rule(httpx.CodeDuplicateEmail, "El email ya está registrado")
)

const uniqueEmailConstraint = "users_email_key"

// Repository provides PostgreSQL backed persistence.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Get(ctx context.Context, id int64) (*User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u User, passwordHash string) (int64, error)
	Update(ctx context.Context, u User) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	CountActiveAdmins(ctx context.Context) (int, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const selectUser = `SELECT id, email, name, role, is_active, created_at, updated_at FROM users`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var where db.Where
	if filter.Search != "" {
		where.Add("(name ILIKE %s OR email ILIKE %s)", db.ContainsPattern(filter.Search))
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	query := fmt.Sprintf("%s %s ORDER BY name, id LIMIT %s OFFSET %s", selectUser, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, filter.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&taken)
	return taken, err
}

func (r *repository) Create(ctx context.Context, u User, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		u.Email, u.Name, passwordHash, u.Role, u.IsActive,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err, uniqueEmailConstraint) {
		return 0, ErrDuplicateEmail
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, u User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET name = $1, role = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4`, u.Name, u.Role, u.IsActive, u.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'ADMIN' AND is_active`).Scan(&n)
	return n, err
}
