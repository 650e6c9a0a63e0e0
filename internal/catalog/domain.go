// Package catalog owns the billable catalog: workshop services, spare parts
// and the per-part stock ledger jobs draw against.
package catalog

import "time"

// ServiceItem is a catalog entry for labour sold on a job card.
type ServiceItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Part is a catalog entry with an on-hand stock quantity. StockQty never
// goes negative; every committed decrement is matched by a restore on
// line removal.
type Part struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PartNumber string    `json:"part_number"`
	UnitPrice  float64   `json:"unit_price"`
	StockQty   int       `json:"stock_qty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
