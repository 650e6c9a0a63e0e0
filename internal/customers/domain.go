// Package customers manages the workshop's customer records, including their
// trash lifecycle (soft delete, restore, retention purge).
package customers

import "time"

// Customer owns vehicles and receives invoices.
type Customer struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Email     *string    `json:"email,omitempty"`
	Address   *string    `json:"address,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Trashed reports whether the customer sits in the trash bin.
func (c Customer) Trashed() bool {
	return c.DeletedAt != nil
}
