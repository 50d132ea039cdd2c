package products

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
	"github.com/mipyme/backoffice/internal/testkit"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var admin = shared.Actor{UserID: 1, Role: shared.RoleAdmin}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	p, err := svc.Create(context.Background(), ProductRequest{Name: "Soporte Técnico", SKU: "SUP-001", Price: price("80000")})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", p.Status)
	assert.True(t, p.Cost.IsZero())
	assert.Equal(t, int64(0), p.Stock)
	assert.Nil(t, p.Description)
}

func TestSKUUniqueness(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	first, err := svc.Create(ctx, ProductRequest{Name: "A", SKU: "CONS-001", Price: price("150000")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, ProductRequest{Name: "B", SKU: "WEB-001", Price: price("500000")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ProductRequest{Name: "C", SKU: "CONS-001", Price: price("1")})
	require.ErrorIs(t, err, ErrDuplicateSKU)
	assert.Equal(t, "El SKU ya existe", err.Error())

	// Keeping its own SKU is allowed, taking another product's is not.
	_, err = svc.Update(ctx, first.ID, ProductRequest{Name: "A2", SKU: "CONS-001", Price: price("160000")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, second.ID, ProductRequest{Name: "B", SKU: "CONS-001", Price: price("1")})
	require.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	repo := newMemoryRepo()
	repo.categories[3] = "Software"
	svc := NewService(repo, nil, nil)
	missing := int64(42)
	_, err := svc.Create(context.Background(), ProductRequest{Name: "X", SKU: "X-1", Price: price("1"), CategoryID: &missing})
	require.ErrorIs(t, err, httpx.ErrValidation)

	known := int64(3)
	p, err := svc.Create(context.Background(), ProductRequest{Name: "X", SKU: "X-1", Price: price("1"), CategoryID: &known})
	require.NoError(t, err)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Software", p.Category.Name)
}

func TestDeleteGuardsReferencedProducts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p, err := svc.Create(ctx, ProductRequest{Name: "ERP", SKU: "ERP-LIC-001", Price: price("1200000")})
	require.NoError(t, err)

	repo.referenced[p.ID] = true
	err = svc.Delete(ctx, p.ID, admin)
	require.ErrorIs(t, err, ErrInUse)
	_, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)

	repo.referenced[p.ID] = false
	require.NoError(t, svc.Delete(ctx, p.ID, admin))
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

type failingAudit struct{ logs []shared.AuditLog }

func (a *failingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return errors.New("audit store down")
}

func TestDeleteRecordsAuditWithoutFailing(t *testing.T) {
	audit := &failingAudit{}
	svc := NewService(newMemoryRepo(), audit, testkit.Logger())
	ctx := context.Background()
	p, err := svc.Create(ctx, ProductRequest{Name: "ERP", SKU: "ERP-LIC-001", Price: price("1200000")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID, admin))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditDelete, audit.logs[0].Action)
	assert.Equal(t, "product", audit.logs[0].Entity)
	assert.Equal(t, map[string]any{"sku": "ERP-LIC-001"}, audit.logs[0].Meta)
}
