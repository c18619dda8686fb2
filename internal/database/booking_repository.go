package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BookingRepository handles bookings database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, pnr, draft_id, user_id, passenger_name, email, phone,
	template_id, trip_id, trip_date, seat_number, total_amount,
	payment_status, status, referral_code, is_roundtrip, roundtrip_leg,
	cancelled_at, created_at, updated_at`

// Create inserts a booking row on the given executor. Callers on the commit
// path pass their transaction.
func (r *BookingRepository) Create(ext sqlx.Ext, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, pnr, draft_id, user_id, passenger_name, email, phone,
			template_id, trip_id, trip_date, seat_number, total_amount,
			payment_status, status, referral_code, is_roundtrip, roundtrip_leg
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	err := ext.QueryRowx(
		query,
		booking.ID, booking.PNR, booking.DraftID, booking.UserID,
		booking.PassengerName, booking.Email, booking.Phone,
		booking.TemplateID, booking.TripID, booking.TripDate, booking.SeatNumber,
		booking.TotalAmount, booking.PaymentStatus, booking.Status,
		booking.ReferralCode, booking.IsRoundtrip, booking.RoundtripLeg,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// DeletePendingByDraftID removes a draft's pending booking rows on the
// caller's transaction. A retried pay attempt replaces its earlier rows
// instead of stacking a second set for the same seats.
func (r *BookingRepository) DeletePendingByDraftID(ext sqlx.Ext, draftID string) error {
	query := `DELETE FROM bookings WHERE draft_id = $1 AND status = 'pending'`

	if _, err := ext.Exec(query, draftID); err != nil {
		return fmt.Errorf("failed to delete pending bookings: %w", err)
	}

	return nil
}

// TakenSeats returns the seat numbers on (template, date) owned by active
// bookings: payment_status='paid' and status not cancelled. This is the
// seat-uniqueness predicate; run it on the commit transaction (after the
// instance row lock) for the authoritative check.
func (r *BookingRepository) TakenSeats(ext sqlx.Ext, templateID string, tripDate time.Time) ([]string, error) {
	query := `
		SELECT seat_number
		FROM bookings
		WHERE template_id = $1
		  AND trip_date = $2
		  AND payment_status = 'paid'
		  AND status != 'cancelled'
	`

	var seats []string
	if err := sqlx.Select(ext, &seats, query, templateID, tripDate); err != nil {
		return nil, fmt.Errorf("failed to get taken seats: %w", err)
	}

	return seats, nil
}

// GetByPNR returns a booking by its public reference
func (r *BookingRepository) GetByPNR(pnr string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE pnr = $1`

	var booking models.Booking
	err := r.db.Get(&booking, query, pnr)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "booking", Key: pnr}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// GetViewByPNR returns the ticket-page projection for a PNR
func (r *BookingRepository) GetViewByPNR(pnr string) (*models.BookingView, error) {
	query := `
		SELECT b.pnr, b.passenger_name, b.email, b.phone,
			   pc.name AS pickup_city, dc.name AS dropoff_city,
			   ts.departure_time, b.trip_date, b.seat_number,
			   b.total_amount, b.payment_status, b.status,
			   b.is_roundtrip, b.roundtrip_leg, b.created_at
		FROM bookings b
		JOIN trip_templates t ON t.id = b.template_id
		JOIN cities pc ON pc.id = t.pickup_city_id
		JOIN cities dc ON dc.id = t.dropoff_city_id
		JOIN time_slots ts ON ts.id = t.time_slot_id
		WHERE b.pnr = $1
	`

	var view models.BookingView
	err := r.db.Get(&view, query, pnr)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "booking", Key: pnr}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking view: %w", err)
	}

	return &view, nil
}

// GetByDraftID returns all bookings created from a draft, on the given
// executor so the commit path sees its own pending rows
func (r *BookingRepository) GetByDraftID(ext sqlx.Ext, draftID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE draft_id = $1 ORDER BY roundtrip_leg, seat_number`

	var bookings []models.Booking
	if err := sqlx.Select(ext, &bookings, query, draftID); err != nil {
		return nil, fmt.Errorf("failed to get bookings for draft: %w", err)
	}

	return bookings, nil
}

// GetByUserID returns a user's bookings newest first
func (r *BookingRepository) GetByUserID(userID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get bookings for user: %w", err)
	}

	return bookings, nil
}

// Confirm promotes a pending booking to confirmed/paid on the commit
// transaction. Zero rows affected means the row was not pending anymore.
func (r *BookingRepository) Confirm(ext sqlx.Ext, bookingID string) error {
	query := `
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := ext.Exec(query, bookingID)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booking %s is not pending", bookingID)
	}

	return nil
}

// CancelBooking flips a booking to cancelled/cancelled. Runs on the caller's
// transaction so the instance counter decrement commits atomically with it.
func (r *BookingRepository) CancelBooking(ext sqlx.Ext, bookingID string) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', payment_status = 'cancelled',
			cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status != 'cancelled'
	`

	result, err := ext.Exec(query, bookingID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booking %s already cancelled", bookingID)
	}

	return nil
}

// PNRExists reports whether a PNR is already assigned
func (r *BookingRepository) PNRExists(pnr string) (bool, error) {
	var exists bool
	err := r.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE pnr = $1)`, pnr)
	if err != nil {
		return false, fmt.Errorf("failed to check pnr: %w", err)
	}

	return exists, nil
}
