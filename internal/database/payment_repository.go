package database

import (
	"fmt"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PaymentRepository handles payments database operations
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment row on the given executor. The confirm
// transaction writes one row per booking sharing the transaction reference.
func (r *PaymentRepository) Create(ext sqlx.Ext, payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_id, amount, transaction_reference, gateway_reference,
			payment_method, status, gateway_response
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}

	err := ext.QueryRowx(
		query,
		payment.ID, payment.BookingID, payment.Amount, payment.TransactionRef,
		payment.GatewayRef, payment.PaymentMethod, payment.Status, payment.GatewayResponse,
	).Scan(&payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByBookingID returns payments recorded against a booking
func (r *PaymentRepository) GetByBookingID(bookingID string) ([]models.Payment, error) {
	query := `
		SELECT id, booking_id, amount, transaction_reference, gateway_reference,
			   payment_method, status, gateway_response, created_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at
	`

	var payments []models.Payment
	if err := r.db.Select(&payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	return payments, nil
}

// ReferenceProcessed reports whether a transaction reference has already
// produced payment rows. Makes the verify callback and the webhook
// idempotent with respect to each other.
func (r *PaymentRepository) ReferenceProcessed(reference string) (bool, error) {
	var exists bool
	err := r.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM payments WHERE transaction_reference = $1)`, reference)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction reference: %w", err)
	}

	return exists, nil
}
