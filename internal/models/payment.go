package models

import "time"

// Payment records one verified gateway transaction against a booking.
// Round-trip / multi-passenger purchases share a transaction_reference
// across their Payment rows.
type Payment struct {
	ID               string    `json:"id" db:"id"`
	BookingID        string    `json:"booking_id" db:"booking_id"`
	Amount           float64   `json:"amount" db:"amount"`
	TransactionRef   string    `json:"transaction_reference" db:"transaction_reference"`
	GatewayRef       *string   `json:"gateway_reference,omitempty" db:"gateway_reference"`
	PaymentMethod    *string   `json:"payment_method,omitempty" db:"payment_method"`
	Status           string    `json:"status" db:"status"`
	GatewayResponse  *string   `json:"gateway_response,omitempty" db:"gateway_response"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// VerifyResult is the adapter's normalized answer from the gateway's verify
// endpoint. PaidAmount is in major currency units (gateway reports kobo).
type VerifyResult struct {
	Success    bool
	PaidAmount float64
	GatewayRef string
	Channel    string
	RawBody    string
}
