package products

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
	ErrNotFound        = httpx.NotFound("Producto no encontrado")
	ErrDuplicateSKU    = httpx.Rule(httpx.CodeDuplicateSKU, "El SKU ya existe")
	ErrInUse           = httpx.Rule(httpx.CodeEntityInUse, "No se puede eliminar el producto porque está siendo usado en cotizaciones o facturas")
	ErrUnknownCategory = httpx.Invalid("categoryId", "la categoría no existe")
)

const uniqueSKUConstraint = "products_sku_key"

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Get(ctx context.Context, id int64) (*Product, error)
	SKUTaken(ctx context.Context, sku string, excludeID int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, product Product) (int64, error)
	Update(ctx context.Context, id int64, product Product) error
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

const selectProduct = `
	SELECT p.id, p.name, p.description, p.sku, p.price, p.cost, p.stock, p.status,
	       p.category_id, c.name, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p            Product
		categoryName *string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Price, &p.Cost, &p.Stock, &p.Status,
		&p.CategoryID, &categoryName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.CategoryID != nil && categoryName != nil {
		p.Category = &CategoryRef{ID: *p.CategoryID, Name: *categoryName}
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var where db.Where
	if filter.Search != "" {
		where.Add("(p.name ILIKE %s OR p.description ILIKE %s OR p.sku ILIKE %s)", db.ContainsPattern(filter.Search))
	}
	if filter.CategoryID != nil {
		where.Add("p.category_id = %s", *filter.CategoryID)
	}
	if filter.Status != "" {
		where.Add("p.status = %s", filter.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products p "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY p.created_at DESC, p.id DESC LIMIT %s OFFSET %s",
		selectProduct, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+" WHERE p.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) SKUTaken(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1 AND id <> $2)`, sku, excludeID).Scan(&exists)
	return exists, err
}

func (r *repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, description, sku, price, cost, stock, status, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		p.Name, p.Description, p.SKU, p.Price, p.Cost, p.Stock, p.Status, p.CategoryID,
	).Scan(&id)
	if err != nil {
		return 0, translateWriteError(err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET name = $1, description = $2, sku = $3, price = $4, cost = $5,
		       stock = $6, status = $7, category_id = $8, updated_at = NOW()
		WHERE id = $9`,
		p.Name, p.Description, p.SKU, p.Price, p.Cost, p.Stock, p.Status, p.CategoryID, id,
	)
	if err != nil {
		return translateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM quote_items WHERE product_id = $1)
		    OR EXISTS(SELECT 1 FROM invoice_items WHERE product_id = $1)`, id).Scan(&referenced)
	return referenced, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
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

func translateWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err, uniqueSKUConstraint):
		return ErrDuplicateSKU
	case db.IsForeignKeyViolation(err, "products_category_id_fkey"):
		return ErrUnknownCategory
	default:
		return err
	}
}
