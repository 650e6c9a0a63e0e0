// Package billing generates the one-time invoice that freezes a job card
// into BILLED, and composes invoice views for presentation.
package billing

import (
	"fmt"
	"time"
)

// Invoice is the immutable billing record. At most one exists per job.
type Invoice struct {
	ID        int64     `json:"id"`
	InvoiceNo string    `json:"invoice_no"`
	JobID     int64     `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}

// InvoiceNumber derives the invoice number from the generation date and the
// job id. The same job billed on the same day always yields the same
// number.
func InvoiceNumber(at time.Time, jobID int64) string {
	return fmt.Sprintf("INV-%s-%04d", at.UTC().Format("20060102"), jobID)
}
