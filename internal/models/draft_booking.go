package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DraftStatus represents the status of a draft booking
// Matches PostgreSQL ENUM: draft_status
type DraftStatus string

const (
	DraftStatusHeld           DraftStatus = "held"            // Seats held, waiting for passenger details/payment
	DraftStatusPaymentPending DraftStatus = "payment_pending" // Payment initiated at the gateway
	DraftStatusConfirmed      DraftStatus = "confirmed"       // Payment verified, bookings promoted
	DraftStatusExpired        DraftStatus = "expired"         // Hold TTL elapsed, seats released
	DraftStatusCancelled      DraftStatus = "cancelled"       // User abandoned the draft
)

// Passenger is one traveller inside a draft's JSONB payload. NextOfKin
// fields ride along for the manifest; only name is required.
type Passenger struct {
	Name         string  `json:"name"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	NextOfKin    *string `json:"next_of_kin,omitempty"`
	NextOfKinTel *string `json:"next_of_kin_tel,omitempty"`
}

// PassengerList is the JSONB column type for draft passengers
type PassengerList []Passenger

// Value implements driver.Valuer for JSONB storage
func (p PassengerList) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal([]Passenger{})
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB retrieval
func (p *PassengerList) Scan(value interface{}) error {
	if value == nil {
		*p = PassengerList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan PassengerList: not a byte slice")
	}

	return json.Unmarshal(bytes, p)
}

// DraftBooking is the explicit, server-tracked booking cart: selected seats
// for one or two legs, passenger payload, credit/referral intent and the
// seat-hold TTL. Replaces the ambient web-session state the flow grew out
// of; referenced externally only by its opaque token. A draft in 'held' or
// 'payment_pending' with held_until in the future blocks its seats in every
// availability query.
type DraftBooking struct {
	ID       string      `json:"id" db:"id"`
	Token    string      `json:"token" db:"token"`
	UserID   *string     `json:"user_id,omitempty" db:"user_id"`
	Status   DraftStatus `json:"status" db:"status"`

	// Outbound leg
	TemplateID string         `json:"template_id" db:"template_id"`
	TripDate   time.Time      `json:"trip_date" db:"trip_date"`
	Seats      pq.StringArray `json:"seats" db:"seats"`

	// Optional return leg
	IsRoundtrip      bool           `json:"is_roundtrip" db:"is_roundtrip"`
	ReturnTemplateID *string        `json:"return_template_id,omitempty" db:"return_template_id"`
	ReturnTripDate   *time.Time     `json:"return_trip_date,omitempty" db:"return_trip_date"`
	ReturnSeats      pq.StringArray `json:"return_seats,omitempty" db:"return_seats"`

	Passengers       PassengerList `json:"passengers" db:"passengers"`
	ContactEmail     *string       `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone     *string       `json:"contact_phone,omitempty" db:"contact_phone"`
	ReferralCode     *string       `json:"referral_code,omitempty" db:"referral_code"`
	CreditsApplied   float64       `json:"credits_applied" db:"credits_applied"`
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`

	HeldUntil time.Time `json:"held_until" db:"held_until"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsHoldLive reports whether the draft still blocks its seats
func (d *DraftBooking) IsHoldLive() bool {
	return (d.Status == DraftStatusHeld || d.Status == DraftStatusPaymentPending) &&
		d.HeldUntil.After(time.Now())
}

// SeatCount returns the number of seats per leg (both legs always carry the
// same count on a round trip)
func (d *DraftBooking) SeatCount() int {
	return len(d.Seats)
}

// ReserveDraftRequest represents the request to reserve seats as a draft
type ReserveDraftRequest struct {
	TemplateID       string   `json:"template_id" binding:"required"`
	TripDate         string   `json:"trip_date" binding:"required"` // "2006-01-02"
	Seats            []string `json:"seats" binding:"required,min=1"`
	IsRoundtrip      bool     `json:"is_roundtrip"`
	ReturnTemplateID *string  `json:"return_template_id,omitempty"`
	ReturnTripDate   *string  `json:"return_trip_date,omitempty"`
	ReturnSeats      []string `json:"return_seats,omitempty"`
}

// Validate validates the reserve request
func (r *ReserveDraftRequest) Validate() error {
	if len(r.Seats) == 0 {
		return NewValidationError("seats", "at least one seat is required")
	}

	if len(r.Seats) > 10 {
		return NewValidationError("seats", "maximum 10 seats can be reserved at once")
	}

	if seen := duplicateSeat(r.Seats); seen != "" {
		return NewValidationError("seats", fmt.Sprintf("duplicate seat %s", seen))
	}

	if _, err := time.Parse("2006-01-02", r.TripDate); err != nil {
		return NewValidationError("trip_date", "must be formatted YYYY-MM-DD")
	}

	if r.IsRoundtrip {
		if r.ReturnTemplateID == nil || *r.ReturnTemplateID == "" {
			return NewValidationError("return_template_id", "required for round trips")
		}
		if r.ReturnTripDate == nil {
			return NewValidationError("return_trip_date", "required for round trips")
		}
		if _, err := time.Parse("2006-01-02", *r.ReturnTripDate); err != nil {
			return NewValidationError("return_trip_date", "must be formatted YYYY-MM-DD")
		}
		if len(r.ReturnSeats) != len(r.Seats) {
			return NewValidationError("return_seats", "must match outbound seat count")
		}
		if seen := duplicateSeat(r.ReturnSeats); seen != "" {
			return NewValidationError("return_seats", fmt.Sprintf("duplicate seat %s", seen))
		}
	}

	return nil
}

func duplicateSeat(seats []string) string {
	seen := make(map[string]bool, len(seats))
	for _, s := range seats {
		if seen[s] {
			return s
		}
		seen[s] = true
	}
	return ""
}

// AttachPassengersRequest represents the passenger-details step
type AttachPassengersRequest struct {
	Passengers   []Passenger `json:"passengers" binding:"required,min=1"`
	ContactEmail string      `json:"contact_email" binding:"required,email"`
	ContactPhone string      `json:"contact_phone" binding:"required"`
	ReferralCode *string     `json:"referral_code,omitempty"`
	UseCredits   float64     `json:"use_credits"`
}

// Validate validates the passenger-details request against the draft
func (r *AttachPassengersRequest) Validate(seatCount int) error {
	if len(r.Passengers) != seatCount {
		return NewValidationError("passengers", fmt.Sprintf("expected %d passengers for %d seats", seatCount, seatCount))
	}

	for i, p := range r.Passengers {
		if p.Name == "" {
			return NewValidationError("passengers", fmt.Sprintf("passenger %d is missing a name", i+1))
		}
	}

	if r.UseCredits < 0 {
		return NewValidationError("use_credits", "cannot be negative")
	}

	return nil
}

// DraftResponse is the public view of a draft returned to clients
type DraftResponse struct {
	Token       string        `json:"token"`
	Status      DraftStatus   `json:"status"`
	TemplateID  string        `json:"template_id"`
	TripDate    string        `json:"trip_date"`
	Seats       []string      `json:"seats"`
	IsRoundtrip bool          `json:"is_roundtrip"`
	ReturnDate  *string       `json:"return_date,omitempty"`
	ReturnSeats []string      `json:"return_seats,omitempty"`
	Passengers  PassengerList `json:"passengers,omitempty"`
	TotalAmount float64       `json:"total_amount"`
	HeldUntil   time.Time     `json:"held_until"`
}
