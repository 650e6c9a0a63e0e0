// Package fleet tracks the vehicles customers bring in. A vehicle's LastKM
// is a monotonic low-water-mark: new job cards must report an odometer
// reading at or above it.
package fleet

import "time"

// Vehicle belongs to a customer and accumulates job cards over visits.
type Vehicle struct {
	ID           int64     `json:"id"`
	Registration string    `json:"registration"`
	Model        string    `json:"model"`
	CustomerID   int64     `json:"customer_id"`
	LastKM       int64     `json:"last_km"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
