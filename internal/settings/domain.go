// Package settings stores workshop-wide key/value configuration. The only
// value the billing core consumes is the tax-rate percentage.
package settings

import "time"

// Well-known setting keys.
const (
	KeyTaxRatePercent = "tax_rate_percent"
)

// DefaultTaxRatePercent applies when the tax rate was never configured.
const DefaultTaxRatePercent = 18.0

// Setting is a single key/value row.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
