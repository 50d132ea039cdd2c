package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

var ErrNotFound = httpx.NotFound("Cotización no encontrada")

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	NextNumber(ctx context.Context, year int) (string, error)
	LoadCustomer(ctx context.Context, id int64) (salesshared.CustomerRef, error)
	LoadProducts(ctx context.Context, ids []int64) (map[int64]salesshared.ProductRef, error)
	Insert(ctx context.Context, quote Quote) (int64, error)
	Get(ctx context.Context, id int64) (*Quote, error)
	GetForUpdate(ctx context.Context, id int64) (*Quote, error)
	List(ctx context.Context, filter ListFilter) ([]Quote, int, error)
	UpdateHeader(ctx context.Context, id int64, validUntil time.Time, notes *string) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	ExpireOverdue(ctx context.Context, today time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn at ReadCommitted so concurrent numbering upserts wait on the
// counter row instead of failing serialization.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) NextNumber(ctx context.Context, year int) (string, error) {
	return shared.NextNumber(ctx, r.db, shared.DocumentQuote, year)
}

func (r *repository) LoadCustomer(ctx context.Context, id int64) (salesshared.CustomerRef, error) {
	return salesshared.LoadCustomer(ctx, r.db, id)
}

func (r *repository) LoadProducts(ctx context.Context, ids []int64) (map[int64]salesshared.ProductRef, error) {
	return salesshared.LoadProducts(ctx, r.db, ids)
}

func (r *repository) Insert(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotes (number, customer_id, user_id, subtotal, tax_rate, tax, total, status, valid_until, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		q.Number, q.CustomerID, q.UserID, q.Subtotal, q.TaxRate, q.Tax, q.Total, string(q.Status), q.ValidUntil, q.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert quote: %w", err)
	}
	for _, item := range q.Items {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO quote_items (quote_id, product_id, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5)`,
			id, item.ProductID, item.Quantity, item.UnitPrice, item.Total,
		); err != nil {
			return 0, fmt.Errorf("insert quote item: %w", err)
		}
	}
	return id, nil
}

const selectQuote = `
	SELECT q.id, q.number, q.customer_id, c.name, q.user_id, q.subtotal, q.tax_rate, q.tax, q.total,
	       q.status, q.valid_until, q.notes, i.id, q.created_at, q.updated_at
	FROM quotes q
	JOIN customers c ON c.id = q.customer_id
	LEFT JOIN invoices i ON i.quote_id = q.id`

func scanQuote(row pgx.Row) (*Quote, error) {
	var (
		q      Quote
		status string
	)
	err := row.Scan(&q.ID, &q.Number, &q.CustomerID, &q.CustomerName, &q.UserID, &q.Subtotal, &q.TaxRate, &q.Tax, &q.Total,
		&status, &q.ValidUntil, &q.Notes, &q.InvoiceID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.Status = Status(status)
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	return r.get(ctx, selectQuote+" WHERE q.id = $1", id)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Quote, error) {
	return r.get(ctx, selectQuote+" WHERE q.id = $1 FOR UPDATE OF q", id)
}

func (r *repository) get(ctx context.Context, query string, id int64) (*Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

func (r *repository) items(ctx context.Context, quoteID int64) ([]salesshared.DocumentLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT qi.id, qi.product_id, p.name, qi.quantity, qi.unit_price, qi.total
		FROM quote_items qi
		JOIN products p ON p.id = qi.product_id
		WHERE qi.quote_id = $1
		ORDER BY qi.id`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list quote items: %w", err)
	}
	defer rows.Close()

	var items []salesshared.DocumentLine
	for rows.Next() {
		var item salesshared.DocumentLine
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quote, int, error) {
	var where db.Where
	if filter.Search != "" {
		where.Add("(q.number ILIKE %s OR c.name ILIKE %s)", db.ContainsPattern(filter.Search))
	}
	if filter.CustomerID != nil {
		where.Add("q.customer_id = %s", *filter.CustomerID)
	}
	switch {
	case filter.Status == StatusExpired:
		where.Add("(q.status = 'EXPIRED' OR (q.status IN ('DRAFT', 'SENT') AND q.valid_until < %s))", filter.Today)
	case filter.Status.Open():
		where.Add("q.status = %s", string(filter.Status))
		where.Add("q.valid_until >= %s", filter.Today)
	case filter.Status != "":
		where.Add("q.status = %s", string(filter.Status))
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM quotes q JOIN customers c ON c.id = q.customer_id " + where.SQL()
	if err := r.db.QueryRow(ctx, countSQL, where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotes: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY q.created_at DESC, q.id DESC LIMIT %s OFFSET %s",
		selectQuote, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0, filter.Limit)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, total, rows.Err()
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, validUntil time.Time, notes *string) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET valid_until = $1, notes = $2, updated_at = NOW() WHERE id = $3`, validUntil, notes, id)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET status = 'EXPIRED', updated_at = NOW()
		WHERE status IN ('DRAFT', 'SENT') AND valid_until < $1`, today)
	if err != nil {
		return 0, fmt.Errorf("expire quotes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
