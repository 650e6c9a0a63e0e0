package billing

import "github.com/gearbox-ops/gearbox-ops/internal/jobcards"

// InvoiceView is the read-only snapshot composed for presentation. Tax is
// recalculated from the rate current at view time, so a later settings
// change shows through on old invoices.
type InvoiceView struct {
	Invoice        Invoice                   `json:"invoice"`
	Job            jobcards.JobCard          `json:"job"`
	Services       []jobcards.JobServiceLine `json:"services"`
	Parts          []jobcards.JobPartLine    `json:"parts"`
	Subtotal       float64                   `json:"subtotal"`
	TaxRatePercent float64                   `json:"tax_rate_percent"`
	TaxAmount      float64                   `json:"tax_amount"`
	GrandTotal     float64                   `json:"grand_total"`
}

// EligibilityResponse answers whether a job can be invoiced right now.
type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
