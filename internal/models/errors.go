package models

import "fmt"

// ValidationError indicates bad form input. Recovered locally by the caller
// (re-render / 400), never aborts anything beyond the current request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SeatConflictError indicates another booking or live hold claimed one or
// more of the requested seats. The enclosing transaction must be rolled back
// and the user asked to reselect.
type SeatConflictError struct {
	TemplateID string
	TripDate   string
	Seats      []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats no longer available: %v", e.Seats)
}

// CapacityExceededError indicates the vehicle for a (template, date) pair is
// full and the requested seats would exceed its capacity.
type CapacityExceededError struct {
	TemplateID string
	TripDate   string
	Capacity   int
	Requested  int
	Booked     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("vehicle capacity %d exceeded: %d booked, %d requested", e.Capacity, e.Booked, e.Requested)
}

// InsufficientCreditsError indicates the conditional credit debit matched no
// rows (balance below the requested amount).
type InsufficientCreditsError struct {
	UserID string
	Amount float64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for debit of %.2f", e.Amount)
}

// GatewayError indicates a payment gateway failure. Unavailable means the
// gateway could not be reached (transport/non-200) and the caller may retry;
// otherwise the gateway answered and the verification itself failed.
type GatewayError struct {
	Unavailable bool
	Reference   string
	Message     string
}

func (e *GatewayError) Error() string {
	if e.Unavailable {
		return fmt.Sprintf("payment gateway unavailable: %s", e.Message)
	}
	return fmt.Sprintf("payment verification failed for %s: %s", e.Reference, e.Message)
}

// NotFoundError indicates a missing entity (booking, draft, template, ...).
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}
