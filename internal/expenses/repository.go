package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

var ErrNotFound = httpx.NotFound("Gasto no encontrado")

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (*Expense, error)
	Create(ctx context.Context, e Expense) (int64, error)
	Update(ctx context.Context, id int64, e Expense) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const selectExpense = `
	SELECT e.id, e.user_id, u.name, e.description, e.amount, e.category, e.date, e.created_at, e.updated_at
	FROM expenses e
	JOIN users u ON u.id = e.user_id`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	if err := row.Scan(&e.ID, &e.UserID, &e.UserName, &e.Description, &e.Amount, &e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	var where db.Where
	if filter.Search != "" {
		where.Add("e.description ILIKE %s", db.ContainsPattern(filter.Search))
	}
	if filter.Category != "" {
		where.Add("e.category = %s", filter.Category)
	}
	if filter.From != nil {
		where.Add("e.date >= %s", *filter.From)
	}
	if filter.To != nil {
		where.Add("e.date <= %s", *filter.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM expenses e "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY e.date DESC, e.id DESC LIMIT %s OFFSET %s",
		selectExpense, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]Expense, 0, filter.Limit)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, selectExpense+" WHERE e.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *repository) Create(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (user_id, description, amount, category, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.UserID, e.Description, e.Amount, e.Category, e.Date,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, e Expense) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE expenses SET description = $1, amount = $2, category = $3, date = $4, updated_at = NOW()
		WHERE id = $5`,
		e.Description, e.Amount, e.Category, e.Date, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
