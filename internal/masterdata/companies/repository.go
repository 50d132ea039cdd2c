package companies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// ErrNotFound is returned while no company profile exists.
var ErrNotFound = httpx.NotFound("Empresa no configurada")

type Repository interface {
	Get(ctx context.Context) (*Company, error)
	Save(ctx context.Context, company Company) (*Company, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const companyColumns = `id, name, tax_id, email, phone, address, currency, tax_rate, created_at, updated_at`

func (r *repository) Get(ctx context.Context) (*Company, error) {
	var c Company
	err := r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM company ORDER BY id LIMIT 1`).Scan(
		&c.ID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.Currency, &c.TaxRate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save updates the single profile row, creating it on first use.
func (r *repository) Save(ctx context.Context, company Company) (*Company, error) {
	var c Company
	err := r.db.QueryRow(ctx, `
		INSERT INTO company (id, name, tax_id, email, phone, address, currency, tax_rate)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tax_id = EXCLUDED.tax_id,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			currency = EXCLUDED.currency,
			tax_rate = EXCLUDED.tax_rate,
			updated_at = NOW()
		RETURNING `+companyColumns,
		company.Name, company.TaxID, company.Email, company.Phone, company.Address, company.Currency, company.TaxRate,
	).Scan(&c.ID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.Currency, &c.TaxRate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
