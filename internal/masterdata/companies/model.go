package companies

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is the business profile used on documents. TaxRate is a percentage.
type Company struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	TaxID     *string         `json:"taxId"`
	Email     *string         `json:"email"`
	Phone     *string         `json:"phone"`
	Address   *string         `json:"address"`
	Currency  string          `json:"currency"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
