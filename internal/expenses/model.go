package expenses

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// Expense is money spent by the business, owned by the user who recorded it.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	UserName    string          `json:"userName"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListFilter narrows expense listings. From and To are inclusive dates.
type ListFilter struct {
	httpx.PageParams
	Category string
	From     *time.Time
	To       *time.Time
}

// ExpenseRequest is the create and update payload.
type ExpenseRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	Amount      *decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Category    string           `json:"category" validate:"required,max=100"`
	Date        string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
}
