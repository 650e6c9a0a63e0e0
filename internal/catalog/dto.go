package catalog

type CreateServiceItemRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Price float64 `json:"price" validate:"gte=0"`
}

type UpdateServiceItemRequest struct {
	Name  *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Price *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

type CreatePartRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	PartNumber string  `json:"part_number" validate:"required,max=64"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
	StockQty   int     `json:"stock_qty" validate:"gte=0"`
}

type UpdatePartRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

type RestockRequest struct {
	Qty int `json:"qty" validate:"required,gt=0"`
}

type ListFilters struct {
	Search  string `json:"search"`
	Page    int    `json:"page" validate:"gte=0"`
	PerPage int    `json:"per_page" validate:"gte=0,lte=200"`
}
