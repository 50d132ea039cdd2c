package categories

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
	ErrNotFound      = httpx.NotFound("Categoría no encontrada")
	ErrDuplicateName = httpx.Rule(httpx.CodeDuplicateName, "La categoría ya existe")
)

const uniqueNameConstraint = "categories_name_key"

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, params httpx.PageParams) ([]Category, int, error)
	Get(ctx context.Context, id int64) (*Category, error)
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, category Category) (*Category, error)
	Update(ctx context.Context, id int64, category Category) (*Category, error)
	DetachProducts(ctx context.Context, id int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const selectCategory = `
	SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
	FROM categories c`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.ProductCount); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, params httpx.PageParams) ([]Category, int, error) {
	var where db.Where
	if params.Search != "" {
		where.Add("c.name ILIKE %s", db.ContainsPattern(params.Search))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM categories c "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY c.name LIMIT %s OFFSET %s", selectCategory, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), params.Limit, params.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0, params.Limit)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		categories = append(categories, *c)
	}
	return categories, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, selectCategory+" WHERE c.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE lower(name) = lower($1) AND id <> $2)`, name, excludeID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, category Category) (*Category, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`, category.Name, category.Description).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueNameConstraint) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Update(ctx context.Context, id int64, category Category) (*Category, error) {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`, category.Name, category.Description, id)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueNameConstraint) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *repository) DetachProducts(ctx context.Context, id int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE products SET category_id = NULL, updated_at = NOW() WHERE category_id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
