package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
)

// ErrTaxRateUnavailable blocks document creation until the company is configured.
var ErrTaxRateUnavailable = httpx.Rule(httpx.CodeMissingTaxSettings, "Configure los datos de la empresa antes de emitir documentos")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Company, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, req UpdateCompanyRequest) (*Company, error) {
	company := Company{
		Name:     strings.TrimSpace(req.Name),
		TaxID:    optional(req.TaxID),
		Email:    optional(req.Email),
		Phone:    optional(req.Phone),
		Address:  optional(req.Address),
		Currency: strings.ToUpper(req.Currency),
		TaxRate:  req.TaxRate.Round(2),
	}
	saved, err := s.repo.Save(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("save company: %w", err)
	}
	return saved, nil
}

// TaxRate returns the configured rate as a fraction (0.19 for 19%).
func (s *Service) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	company, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, ErrTaxRateUnavailable
		}
		return decimal.Zero, err
	}
	return salesshared.RateFromPercent(company.TaxRate), nil
}

// Currency returns the ISO code documents are issued in.
func (s *Service) Currency(ctx context.Context) (string, error) {
	company, err := s.repo.Get(ctx)
	if err != nil {
		return "", err
	}
	return company.Currency, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
