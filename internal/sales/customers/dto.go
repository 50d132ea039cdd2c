package customers

// CustomerRequest is the create and update payload. An empty email is stored as null.
type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	TaxID   string `json:"taxId" validate:"max=50"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	Status  string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}
