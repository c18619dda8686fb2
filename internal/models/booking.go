package models

import (
	"errors"
	"time"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// RoundtripLeg tags which direction of a round-trip a booking belongs to
type RoundtripLeg string

const (
	LegOutbound RoundtripLeg = "outbound"
	LegReturn   RoundtripLeg = "return"
)

// Booking is one passenger on one seat of one leg. Created pending/pending,
// promoted to confirmed/paid only by the payment-verified commit transaction.
// Seat-uniqueness invariant: for a (template_id, trip_date, seat_number)
// triple at most one row may hold payment_status='paid' AND
// status='confirmed' at a time.
type Booking struct {
	ID            string        `json:"id" db:"id"`
	PNR           string        `json:"pnr" db:"pnr"`
	DraftID       *string       `json:"draft_id,omitempty" db:"draft_id"`
	UserID        *string       `json:"user_id,omitempty" db:"user_id"`
	PassengerName string        `json:"passenger_name" db:"passenger_name"`
	Email         string        `json:"email" db:"email"`
	Phone         string        `json:"phone" db:"phone"`
	TemplateID    string        `json:"template_id" db:"template_id"`
	TripID        string        `json:"trip_id" db:"trip_id"`
	TripDate      time.Time     `json:"trip_date" db:"trip_date"`
	SeatNumber    string        `json:"seat_number" db:"seat_number"`
	TotalAmount   float64       `json:"total_amount" db:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	Status        BookingStatus `json:"status" db:"status"`
	ReferralCode  *string       `json:"referral_code,omitempty" db:"referral_code"`
	IsRoundtrip   bool          `json:"is_roundtrip" db:"is_roundtrip"`
	RoundtripLeg  RoundtripLeg  `json:"roundtrip_leg" db:"roundtrip_leg"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the booking currently owns its seat
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed && b.PaymentStatus == PaymentStatusPaid
}

// CanBeCancelled reports whether a cancellation is allowed
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusPending
}

// Cancel flips the booking to its terminal-failure state
func (b *Booking) Cancel() error {
	if !b.CanBeCancelled() {
		return errors.New("booking cannot be cancelled")
	}

	now := time.Now()
	b.Status = BookingStatusCancelled
	b.PaymentStatus = PaymentStatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now

	return nil
}

// BookingView is the PNR-lookup projection joining booking, route and
// payment details for the ticket page
type BookingView struct {
	PNR           string        `json:"pnr" db:"pnr"`
	PassengerName string        `json:"passenger_name" db:"passenger_name"`
	Email         string        `json:"email" db:"email"`
	Phone         string        `json:"phone" db:"phone"`
	PickupCity    string        `json:"pickup_city" db:"pickup_city"`
	DropoffCity   string        `json:"dropoff_city" db:"dropoff_city"`
	DepartureTime string        `json:"departure_time" db:"departure_time"`
	TripDate      time.Time     `json:"trip_date" db:"trip_date"`
	SeatNumber    string        `json:"seat_number" db:"seat_number"`
	TotalAmount   float64       `json:"total_amount" db:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	Status        BookingStatus `json:"status" db:"status"`
	IsRoundtrip   bool          `json:"is_roundtrip" db:"is_roundtrip"`
	RoundtripLeg  RoundtripLeg  `json:"roundtrip_leg" db:"roundtrip_leg"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}
