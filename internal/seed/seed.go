// Package seed loads the demo data set through the domain services so
// numbering, totals and statuses are derived the same way as in production.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/ar"
	"github.com/mipyme/backoffice/internal/expenses"
	"github.com/mipyme/backoffice/internal/masterdata/categories"
	"github.com/mipyme/backoffice/internal/masterdata/companies"
	"github.com/mipyme/backoffice/internal/masterdata/products"
	"github.com/mipyme/backoffice/internal/sales/customers"
	"github.com/mipyme/backoffice/internal/sales/quotations"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
	"github.com/mipyme/backoffice/internal/users"
)

const (
	AdminEmail    = "admin@empresa.com"
	AdminPassword = "admin123"
)

// ErrAlreadySeeded is returned when the admin account exists.
var ErrAlreadySeeded = errors.New("seed: database already contains the demo admin")

type (
	UserCreator interface {
		Create(ctx context.Context, req users.CreateUserRequest, actor shared.Actor) (*users.User, error)
	}
	CompanyUpdater interface {
		Update(ctx context.Context, req companies.UpdateCompanyRequest) (*companies.Company, error)
	}
	CategoryCreator interface {
		Create(ctx context.Context, req categories.CategoryRequest) (*categories.Category, error)
	}
	ProductCreator interface {
		Create(ctx context.Context, req products.ProductRequest) (*products.Product, error)
	}
	CustomerCreator interface {
		Create(ctx context.Context, req customers.CustomerRequest) (*customers.Customer, error)
	}
	QuoteIssuer interface {
		Create(ctx context.Context, req quotations.CreateQuoteRequest, actor shared.Actor) (*quotations.Quote, error)
		ChangeStatus(ctx context.Context, id int64, to quotations.Status, actor shared.Actor) (*quotations.Quote, error)
		Convert(ctx context.Context, id int64, req quotations.ConvertRequest, actor shared.Actor) (salesshared.IssuedDocument, error)
	}
	InvoiceIssuer interface {
		Create(ctx context.Context, req ar.CreateInvoiceRequest, actor shared.Actor) (*ar.Invoice, error)
		Get(ctx context.Context, id int64) (*ar.Invoice, error)
		ApplyPayment(ctx context.Context, invoiceID int64, req ar.PaymentRequest, idempotencyKey string, actor shared.Actor) (*ar.PaymentResult, error)
	}
	ExpenseCreator interface {
		Create(ctx context.Context, req expenses.ExpenseRequest, actor shared.Actor) (*expenses.Expense, error)
	}
)

// Targets are the services the seed writes through.
type Targets struct {
	Users      UserCreator
	Company    CompanyUpdater
	Categories CategoryCreator
	Products   ProductCreator
	Customers  CustomerCreator
	Quotes     QuoteIssuer
	Invoices   InvoiceIssuer
	Expenses   ExpenseCreator
}

// Result reports what was created.
type Result struct {
	AdminID    int64
	Categories int
	Products   int
	Customers  int
	Quotes     []string
	Invoices   []string
	Payments   int
	Expenses   int
}

// Run loads the demo data. now anchors validity, due and expense dates.
func Run(ctx context.Context, t Targets, now time.Time, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{}
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }

	logger.Info("seeding users")
	admin, err := t.Users.Create(ctx, users.CreateUserRequest{
		Name:     "Administrador",
		Email:    AdminEmail,
		Password: AdminPassword,
		Role:     shared.RoleAdmin,
	}, shared.Actor{Role: shared.RoleAdmin})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, ErrAlreadySeeded
		}
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	res.AdminID = admin.ID
	actor := shared.Actor{UserID: admin.ID, Role: shared.RoleAdmin}

	logger.Info("seeding company")
	rate := decimal.NewFromInt(19)
	if _, err := t.Company.Update(ctx, companies.UpdateCompanyRequest{
		Name:     "Mi Empresa SPA",
		TaxID:    "12.345.678-9",
		Email:    "contacto@miempresa.com",
		Phone:    "+56 2 2234 5678",
		Address:  "Av. Providencia 1234, Santiago, Chile",
		Currency: "CLP",
		TaxRate:  &rate,
	}); err != nil {
		return nil, fmt.Errorf("seed company: %w", err)
	}

	logger.Info("seeding categories")
	categoryIDs := make([]int64, 0, 4)
	for _, name := range []string{"Servicios", "Productos Físicos", "Software", "Consultoría"} {
		c, err := t.Categories.Create(ctx, categories.CategoryRequest{Name: name})
		if err != nil {
			return nil, fmt.Errorf("seed category %s: %w", name, err)
		}
		categoryIDs = append(categoryIDs, c.ID)
	}
	res.Categories = len(categoryIDs)

	logger.Info("seeding products")
	catalog := []struct {
		name, description, sku string
		price, cost, stock     int64
		category               int
	}{
		{"Consultoría en Sistemas", "Servicios de consultoría especializada en sistemas de información", "CONS-001", 150000, 100000, 999, 3},
		{"Desarrollo Web", "Desarrollo de sitios web personalizados", "WEB-001", 500000, 300000, 999, 0},
		{"Licencia Software ERP", "Licencia anual del sistema ERP empresarial", "ERP-LIC-001", 1200000, 800000, 50, 2},
		{"Soporte Técnico", "Soporte técnico mensual para sistemas", "SUP-001", 80000, 50000, 999, 0},
		{"Servidor Dell PowerEdge", "Servidor físico Dell PowerEdge R740", "SERV-DELL-001", 2500000, 2000000, 5, 1},
	}
	productIDs := make([]int64, 0, len(catalog))
	for _, p := range catalog {
		price, cost, stock := decimal.NewFromInt(p.price), decimal.NewFromInt(p.cost), p.stock
		categoryID := categoryIDs[p.category]
		created, err := t.Products.Create(ctx, products.ProductRequest{
			Name:        p.name,
			Description: p.description,
			SKU:         p.sku,
			Price:       &price,
			Cost:        &cost,
			Stock:       &stock,
			CategoryID:  &categoryID,
		})
		if err != nil {
			return nil, fmt.Errorf("seed product %s: %w", p.sku, err)
		}
		productIDs = append(productIDs, created.ID)
	}
	res.Products = len(productIDs)

	logger.Info("seeding customers")
	customerIDs := make([]int64, 0, 4)
	for _, c := range []customers.CustomerRequest{
		{Name: "Empresa ABC Limitada", TaxID: "76.123.456-7", Email: "contacto@empresaabc.cl", Phone: "+56 2 2345 6789", Address: "Las Condes 2345, Santiago"},
		{Name: "Comercial XYZ S.A.", TaxID: "98.765.432-1", Email: "admin@comercialxyz.cl", Phone: "+56 9 8765 4321", Address: "Providencia 987, Santiago"},
		{Name: "StartUp Innovadora", TaxID: "77.888.999-0", Email: "hello@startup.cl", Phone: "+56 9 1234 5678", Address: "Ñuñoa 456, Santiago"},
		{Name: "Retail Plus SpA", TaxID: "79.111.222-3", Email: "ventas@retailplus.cl", Phone: "+56 2 2111 2222", Address: "Maipú 789, Santiago"},
	} {
		c.Status = salesshared.StatusActive
		created, err := t.Customers.Create(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("seed customer %s: %w", c.Name, err)
		}
		customerIDs = append(customerIDs, created.ID)
	}
	res.Customers = len(customerIDs)

	item := func(product int, qty int64) salesshared.ItemPayload {
		return salesshared.ItemPayload{ProductID: productIDs[product], Quantity: qty}
	}

	logger.Info("seeding quotes")
	sent, err := t.Quotes.Create(ctx, quotations.CreateQuoteRequest{
		CustomerID: customerIDs[0],
		ValidUntil: day(30),
		Notes:      "Cotización para implementación de sistema ERP",
		Items:      []salesshared.ItemPayload{item(0, 2), item(1, 1)},
	}, actor)
	if err != nil {
		return nil, fmt.Errorf("seed quote: %w", err)
	}
	if _, err := t.Quotes.ChangeStatus(ctx, sent.ID, quotations.StatusSent, actor); err != nil {
		return nil, fmt.Errorf("send quote %s: %w", sent.Number, err)
	}
	accepted, err := t.Quotes.Create(ctx, quotations.CreateQuoteRequest{
		CustomerID: customerIDs[1],
		ValidUntil: day(15),
		Notes:      "Cotización para licencias y soporte técnico",
		Items:      []salesshared.ItemPayload{item(2, 1), item(3, 1)},
	}, actor)
	if err != nil {
		return nil, fmt.Errorf("seed quote: %w", err)
	}
	for _, status := range []quotations.Status{quotations.StatusSent, quotations.StatusAccepted} {
		if _, err := t.Quotes.ChangeStatus(ctx, accepted.ID, status, actor); err != nil {
			return nil, fmt.Errorf("move quote %s to %s: %w", accepted.Number, status, err)
		}
	}
	res.Quotes = []string{sent.Number, accepted.Number}

	logger.Info("seeding invoices")
	issued, err := t.Quotes.Convert(ctx, accepted.ID, quotations.ConvertRequest{
		DueDate: day(30),
		Notes:   "Factura generada desde cotización " + accepted.Number,
	}, actor)
	if err != nil {
		return nil, fmt.Errorf("convert quote %s: %w", accepted.Number, err)
	}
	converted, err := t.Invoices.Get(ctx, issued.ID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %s: %w", issued.Number, err)
	}
	amount := converted.Total
	if _, err := t.Invoices.ApplyPayment(ctx, converted.ID, ar.PaymentRequest{
		Amount:    &amount,
		Method:    ar.MethodTransfer,
		Reference: "TRF-2024-001",
		Notes:     "Pago completo por transferencia bancaria",
	}, "seed-payment-"+converted.Number, actor); err != nil {
		return nil, fmt.Errorf("pay invoice %s: %w", converted.Number, err)
	}
	res.Payments = 1

	pending, err := t.Invoices.Create(ctx, ar.CreateInvoiceRequest{
		CustomerID: customerIDs[2],
		DueDate:    day(30),
		Notes:      "Factura por servicios de consultoría",
		Items:      []salesshared.ItemPayload{item(0, 1), item(3, 1)},
	}, actor)
	if err != nil {
		return nil, fmt.Errorf("seed invoice: %w", err)
	}
	res.Invoices = []string{converted.Number, pending.Number}

	logger.Info("seeding expenses")
	for _, e := range []struct {
		description, category string
		amount                int64
		daysAgo               int
	}{
		{"Compra de licencias Microsoft Office", "Software", 250000, 5},
		{"Hosting y dominio anual", "Servicios", 120000, 10},
		{"Material de oficina", "Oficina", 45000, 3},
		{"Combustible vehículo empresa", "Transporte", 85000, 1},
	} {
		amount := decimal.NewFromInt(e.amount)
		if _, err := t.Expenses.Create(ctx, expenses.ExpenseRequest{
			Description: e.description,
			Amount:      &amount,
			Category:    e.category,
			Date:        day(-e.daysAgo),
		}, actor); err != nil {
			return nil, fmt.Errorf("seed expense %q: %w", e.description, err)
		}
		res.Expenses++
	}
	return res, nil
}
