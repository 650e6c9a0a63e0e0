package fleet

type CreateVehicleRequest struct {
	Registration string `json:"registration" validate:"required,max=32"`
	Model        string `json:"model" validate:"required,max=100"`
	CustomerID   int64  `json:"customer_id" validate:"required,gt=0"`
	LastKM       int64  `json:"last_km" validate:"gte=0"`
}

type UpdateVehicleRequest struct {
	Model      *string `json:"model,omitempty" validate:"omitempty,max=100"`
	CustomerID *int64  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
}

type ListVehiclesRequest struct {
	CustomerID *int64 `json:"customer_id,omitempty"`
	Search     string `json:"search"`
	Page       int    `json:"page" validate:"gte=0"`
	PerPage    int    `json:"per_page" validate:"gte=0,lte=200"`
}
