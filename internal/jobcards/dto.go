package jobcards

type CreateJobRequest struct {
	VehicleID  int64  `json:"vehicle_id" validate:"required,gt=0"`
	Complaint  string `json:"complaint" validate:"required,max=2000"`
	OdometerKM int64  `json:"odometer_km" validate:"gte=0"`
}

type TransitionRequest struct {
	Status JobStatus `json:"status" validate:"required"`
}

type AssignMechanicRequest struct {
	// MechanicID nil unassigns the current mechanic.
	MechanicID *int64 `json:"mechanic_id" validate:"omitempty,gt=0"`
}

type UpdateNotesRequest struct {
	MechanicNotes string `json:"mechanic_notes" validate:"max=5000"`
}

type AddServiceRequest struct {
	ServiceID int64   `json:"service_id" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	Qty       int     `json:"qty" validate:"required,gt=0"`
}

type AddPartRequest struct {
	PartID int64   `json:"part_id" validate:"required,gt=0"`
	Price  float64 `json:"price" validate:"gte=0"`
	Qty    int     `json:"qty" validate:"required,gt=0"`
}

type ListJobsRequest struct {
	Status     JobStatus `json:"status"`
	VehicleID  *int64    `json:"vehicle_id,omitempty"`
	MechanicID *int64    `json:"mechanic_id,omitempty"`
	Page       int       `json:"page" validate:"gte=0"`
	PerPage    int       `json:"per_page" validate:"gte=0,lte=200"`
}

// JobDetail is the read model for one job card with its lines.
type JobDetail struct {
	Job      JobCard          `json:"job"`
	Services []JobServiceLine `json:"services"`
	Parts    []JobPartLine    `json:"parts"`
}
