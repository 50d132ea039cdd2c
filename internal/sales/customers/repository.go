package customers

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
	ErrNotFound = httpx.NotFound("Cliente no encontrado")
	ErrInUse    = httpx.Rule(httpx.CodeEntityInUse, "No se puede eliminar el cliente porque tiene cotizaciones o facturas asociadas")
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	RecentQuotes(ctx context.Context, customerID int64, limit int) ([]DocumentSummary, error)
	RecentInvoices(ctx context.Context, customerID int64, limit int) ([]DocumentSummary, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, customer Customer) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
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

const selectCustomer = `
	SELECT id, name, tax_id, email, phone, address, status, created_at, updated_at
	FROM customers`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var where db.Where
	if filter.Search != "" {
		where.Add("(name ILIKE %s OR email ILIKE %s OR tax_id ILIKE %s)", db.ContainsPattern(filter.Search))
	}
	if filter.Status != "" {
		where.Add("status = %s", filter.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY created_at DESC, id DESC LIMIT %s OFFSET %s",
		selectCustomer, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0, filter.Limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, selectCustomer+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) RecentQuotes(ctx context.Context, customerID int64, limit int) ([]DocumentSummary, error) {
	return r.summaries(ctx, `
		SELECT id, number, status, total, created_at FROM quotes
		WHERE customer_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, customerID, limit)
}

func (r *repository) RecentInvoices(ctx context.Context, customerID int64, limit int) ([]DocumentSummary, error) {
	return r.summaries(ctx, `
		SELECT id, number, status, total, created_at FROM invoices
		WHERE customer_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, customerID, limit)
}

func (r *repository) summaries(ctx context.Context, query string, args ...interface{}) ([]DocumentSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customer documents: %w", err)
	}
	defer rows.Close()

	out := make([]DocumentSummary, 0, recentDocuments)
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.ID, &d.Number, &d.Status, &d.Total, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (name, tax_id, email, phone, address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		c.Name, c.TaxID, c.Email, c.Phone, c.Address, c.Status,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, c Customer) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET name = $1, tax_id = $2, email = $3, phone = $4, address = $5,
		       status = $6, updated_at = NOW()
		WHERE id = $7`,
		c.Name, c.TaxID, c.Email, c.Phone, c.Address, c.Status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM quotes WHERE customer_id = $1)
		    OR EXISTS(SELECT 1 FROM invoices WHERE customer_id = $1)`, id).Scan(&referenced)
	return referenced, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err, "") {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
