package products

import "github.com/shopspring/decimal"

// ProductRequest is the create and update payload. Updates replace every field.
type ProductRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	SKU         string           `json:"sku" validate:"required,max=60"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Cost        *decimal.Decimal `json:"cost" validate:"omitempty,gte=0"`
	Stock       *int64           `json:"stock" validate:"omitempty,gte=0"`
	CategoryID  *int64           `json:"categoryId" validate:"omitempty,gt=0"`
	Status      string           `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}
