package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// Status values shared by customers and products.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

var (
	// ErrCustomerNotFound is returned when a document references a missing customer.
	ErrCustomerNotFound = httpx.NotFound("Cliente no encontrado")
	// ErrProductNotFound is returned when a line references a missing product.
	ErrProductNotFound = httpx.NotFound("Producto no encontrado")
	// ErrInactiveCustomer rejects new documents for inactive customers.
	ErrInactiveCustomer = httpx.Rule(httpx.CodeInactiveReference, "El cliente está inactivo")
	// ErrInactiveProduct rejects new lines for inactive products.
	ErrInactiveProduct = httpx.Rule(httpx.CodeInactiveReference, "El producto está inactivo")
)

// ProductRef is the product data a document line needs.
type ProductRef struct {
	ID     int64
	Name   string
	Price  decimal.Decimal
	Status string
}

// CustomerRef is the customer data a document header needs.
type CustomerRef struct {
	ID     int64
	Name   string
	Email  *string
	Status string
}

// LoadCustomer reads the customer referenced by a new document.
func LoadCustomer(ctx context.Context, q db.DBTX, id int64) (CustomerRef, error) {
	var ref CustomerRef
	err := q.QueryRow(ctx, `SELECT id, name, email, status FROM customers WHERE id = $1`, id).
		Scan(&ref.ID, &ref.Name, &ref.Email, &ref.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerRef{}, ErrCustomerNotFound
		}
		return CustomerRef{}, fmt.Errorf("load customer: %w", err)
	}
	return ref, nil
}

// LoadProducts reads the products referenced by document lines, keyed by id.
// Missing ids are reported as ErrProductNotFound.
func LoadProducts(ctx context.Context, q db.DBTX, ids []int64) (map[int64]ProductRef, error) {
	rows, err := q.Query(ctx, `SELECT id, name, price, status FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]ProductRef, len(ids))
	for rows.Next() {
		var ref ProductRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Price, &ref.Status); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, ErrProductNotFound
		}
	}
	return out, nil
}

// ItemRequest is a requested document line; a nil price means the catalog price.
type ItemRequest struct {
	ProductID int64
	Quantity  int64
	UnitPrice *decimal.Decimal
}

// ResolveLines checks references and fills in catalog prices.
func ResolveLines(customer CustomerRef, products map[int64]ProductRef, items []ItemRequest) ([]LineInput, error) {
	if customer.Status != StatusActive {
		return nil, ErrInactiveCustomer
	}
	lines := make([]LineInput, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		if product.Status != StatusActive {
			return nil, ErrInactiveProduct
		}
		price := product.Price
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		lines = append(lines, LineInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: price})
	}
	return lines, nil
}

// ProductIDs returns the distinct product ids referenced by items.
func ProductIDs(items []ItemRequest) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
