package shared

import "errors"

// Domain error kinds shared by every module. Services wrap these with
// fmt.Errorf("%w: ...") so callers can branch with errors.Is and the HTTP
// layer can map each kind to a status code.
var (
	// ErrValidation indicates rejected input (odometer regression, bad quantity).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates the actor's role does not permit the operation.
	ErrUnauthorized = errors.New("not authorized")
	// ErrInvalidTransition indicates an illegal job status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInsufficientStock indicates a part cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrBilling indicates an invoice precondition failure.
	ErrBilling = errors.New("billing rejected")
	// ErrConflict indicates a unique-constraint collision.
	ErrConflict = errors.New("conflict")
)
