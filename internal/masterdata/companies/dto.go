package companies

import "github.com/shopspring/decimal"

// UpdateCompanyRequest replaces the company profile.
type UpdateCompanyRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	TaxID    string           `json:"taxId" validate:"max=50"`
	Email    string           `json:"email" validate:"omitempty,email"`
	Phone    string           `json:"phone" validate:"max=50"`
	Address  string           `json:"address" validate:"max=300"`
	Currency string           `json:"currency" validate:"required,len=3"`
	TaxRate  *decimal.Decimal `json:"taxRate" validate:"required,gte=0,lt=100"`
}
