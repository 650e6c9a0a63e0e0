// Package jobcards owns the work order tracking one vehicle visit from
// intake to billing: the status state machine, the service and part lines,
// their stock movements and the computed totals.
package jobcards

import (
	"fmt"
	"time"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// JobStatus is the lifecycle state of a job card.
type JobStatus string

const (
	StatusOpen       JobStatus = "OPEN"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusBilled     JobStatus = "BILLED"
)

// Valid reports whether s is a known status literal.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusBilled:
		return true
	}
	return false
}

// transition is one legal edge of the status machine.
type transition struct {
	From JobStatus
	To   JobStatus
}

// transitionRoles is the exhaustive rulebook: which roles may take which
// edge. Mechanics step forward one state at a time and never reach BILLED;
// admins may jump to any forward target.
var transitionRoles = map[transition][]shared.Role{
	{StatusOpen, StatusInProgress}:      {shared.RoleAdmin, shared.RoleMechanic},
	{StatusOpen, StatusCompleted}:       {shared.RoleAdmin},
	{StatusOpen, StatusBilled}:          {shared.RoleAdmin},
	{StatusInProgress, StatusCompleted}: {shared.RoleAdmin, shared.RoleMechanic},
	{StatusInProgress, StatusBilled}:    {shared.RoleAdmin},
	{StatusCompleted, StatusBilled}:     {shared.RoleAdmin},
}

// CanTransition checks whether role may move a job from one status to
// another. Unknown literals and backward or repeated moves fail as invalid
// transitions; a known edge the role is not entitled to fails as
// unauthorized when the target is BILLED, since only the edge's role gate
// blocks it.
func CanTransition(role shared.Role, from, to JobStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidTransition, string(to))
	}
	roles, ok := transitionRoles[transition{From: from, To: to}]
	if !ok {
		return fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, from, to)
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	if to == StatusBilled {
		return fmt.Errorf("%w: only admins may bill a job", shared.ErrUnauthorized)
	}
	return fmt.Errorf("%w: %s to %s is not permitted for role %s", shared.ErrInvalidTransition, from, to, role)
}

// JobCard is the work order for one vehicle visit.
type JobCard struct {
	ID            int64      `json:"id"`
	VehicleID     int64      `json:"vehicle_id"`
	CustomerID    int64      `json:"customer_id"`
	OdometerKM    int64      `json:"odometer_km"`
	Complaint     string     `json:"complaint"`
	MechanicNotes string     `json:"mechanic_notes"`
	Status        JobStatus  `json:"status"`
	MechanicID    *int64     `json:"mechanic_id,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ServicesTotal float64    `json:"services_total"`
	PartsTotal    float64    `json:"parts_total"`
	TaxAmount     float64    `json:"tax_amount"`
	GrandTotal    float64    `json:"grand_total"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Trashed reports whether the job sits in the trash bin.
func (j *JobCard) Trashed() bool {
	return j.DeletedAt != nil
}

// JobServiceLine is labour billed on a job, with the catalog name frozen at
// the time the line was added.
type JobServiceLine struct {
	ID        int64   `json:"id"`
	JobID     int64   `json:"job_id"`
	ServiceID int64   `json:"service_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Qty       int     `json:"qty"`
}

// JobPartLine is a part consumed on a job. Qty units were taken from stock
// when the line was committed and are restored when it is removed.
type JobPartLine struct {
	ID         int64   `json:"id"`
	JobID      int64   `json:"job_id"`
	PartID     int64   `json:"part_id"`
	Name       string  `json:"name"`
	PartNumber string  `json:"part_number"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
}

// Totals are the four money columns on a job card. They are a pure function
// of the current lines and tax rate, never patched incrementally.
type Totals struct {
	ServicesTotal float64 `json:"services_total"`
	PartsTotal    float64 `json:"parts_total"`
	TaxAmount     float64 `json:"tax_amount"`
	GrandTotal    float64 `json:"grand_total"`
}

// ComputeTotals derives the four totals from the current lines and the
// current tax rate percentage.
func ComputeTotals(services []JobServiceLine, parts []JobPartLine, taxRatePercent float64) Totals {
	var t Totals
	for _, line := range services {
		t.ServicesTotal += line.Price * float64(line.Qty)
	}
	for _, line := range parts {
		t.PartsTotal += line.Price * float64(line.Qty)
	}
	t.TaxAmount = (t.ServicesTotal + t.PartsTotal) * taxRatePercent / 100
	t.GrandTotal = t.ServicesTotal + t.PartsTotal + t.TaxAmount
	return t
}
