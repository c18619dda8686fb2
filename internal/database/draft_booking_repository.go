package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DraftBookingRepository handles draft_bookings database operations. Drafts
// are the explicit booking cart: they hold seats under a TTL and carry the
// in-flight passenger/payment state between the selection and commit steps.
type DraftBookingRepository struct {
	db *sqlx.DB
}

// NewDraftBookingRepository creates a new DraftBookingRepository
func NewDraftBookingRepository(db *sqlx.DB) *DraftBookingRepository {
	return &DraftBookingRepository{db: db}
}

const draftColumns = `
	id, token, user_id, status, template_id, trip_date, seats,
	is_roundtrip, return_template_id, return_trip_date, return_seats,
	passengers, contact_email, contact_phone, referral_code,
	credits_applied, total_amount, payment_reference, held_until,
	created_at, updated_at`

// Create inserts a new held draft on the given executor. The reserve path
// passes its transaction so the hold lands atomically with the availability
// check it just ran.
func (r *DraftBookingRepository) Create(ext sqlx.Ext, draft *models.DraftBooking) error {
	query := `
		INSERT INTO draft_bookings (
			id, token, user_id, status, template_id, trip_date, seats,
			is_roundtrip, return_template_id, return_trip_date, return_seats,
			passengers, total_amount, held_until
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING created_at, updated_at
	`

	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.Token == "" {
		draft.Token = uuid.New().String()
	}

	err := ext.QueryRowx(
		query,
		draft.ID, draft.Token, draft.UserID, draft.Status,
		draft.TemplateID, draft.TripDate, draft.Seats,
		draft.IsRoundtrip, draft.ReturnTemplateID, draft.ReturnTripDate, draft.ReturnSeats,
		draft.Passengers, draft.TotalAmount, draft.HeldUntil,
	).Scan(&draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create draft booking: %w", err)
	}

	return nil
}

// GetByToken returns a draft by its public token
func (r *DraftBookingRepository) GetByToken(token string) (*models.DraftBooking, error) {
	query := `SELECT ` + draftColumns + ` FROM draft_bookings WHERE token = $1`

	var draft models.DraftBooking
	err := r.db.Get(&draft, query, token)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "draft booking", Key: token}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft booking: %w", err)
	}

	return &draft, nil
}

// LockByID re-reads a draft under FOR UPDATE on the caller's transaction.
// The pay and commit paths lock the draft first so concurrent pay retries,
// callbacks and webhooks serialize on the row and see its current status.
func (r *DraftBookingRepository) LockByID(ext sqlx.Ext, draftID string) (*models.DraftBooking, error) {
	query := `
		SELECT ` + draftColumns + `
		FROM draft_bookings
		WHERE id = $1
		FOR UPDATE
	`

	var draft models.DraftBooking
	err := sqlx.Get(ext, &draft, query, draftID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "draft booking", Key: draftID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock draft booking: %w", err)
	}

	return &draft, nil
}

// GetByPaymentReference returns the draft a gateway reference was issued for
func (r *DraftBookingRepository) GetByPaymentReference(reference string) (*models.DraftBooking, error) {
	query := `SELECT ` + draftColumns + ` FROM draft_bookings WHERE payment_reference = $1`

	var draft models.DraftBooking
	err := r.db.Get(&draft, query, reference)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "draft booking", Key: reference}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft by payment reference: %w", err)
	}

	return &draft, nil
}

// HeldSeats returns seat numbers on (template, date) blocked by OTHER live
// drafts: held or payment_pending with held_until still in the future.
// Covers both legs of round-trip drafts.
func (r *DraftBookingRepository) HeldSeats(ext sqlx.Ext, templateID string, tripDate time.Time, excludeDraftID string) ([]string, error) {
	query := `
		SELECT seat
		FROM (
			SELECT unnest(seats) AS seat
			FROM draft_bookings
			WHERE template_id = $1 AND trip_date = $2
			  AND status IN ('held', 'payment_pending')
			  AND held_until > NOW()
			  AND id != $3
			UNION ALL
			SELECT unnest(return_seats) AS seat
			FROM draft_bookings
			WHERE return_template_id = $1 AND return_trip_date = $2
			  AND status IN ('held', 'payment_pending')
			  AND held_until > NOW()
			  AND id != $3
		) held
	`

	var seats []string
	if err := sqlx.Select(ext, &seats, query, templateID, tripDate, excludeDraftID); err != nil {
		return nil, fmt.Errorf("failed to get held seats: %w", err)
	}

	return seats, nil
}

// UpdatePassengers stores the passenger payload, contact and credit/referral
// intent, plus the recomputed total. Only held drafts may be edited.
func (r *DraftBookingRepository) UpdatePassengers(draft *models.DraftBooking) error {
	query := `
		UPDATE draft_bookings
		SET passengers = $2, contact_email = $3, contact_phone = $4,
			referral_code = $5, credits_applied = $6, total_amount = $7,
			updated_at = NOW()
		WHERE id = $1 AND status = 'held'
		RETURNING updated_at
	`

	err := r.db.QueryRowx(
		query,
		draft.ID, draft.Passengers, draft.ContactEmail, draft.ContactPhone,
		draft.ReferralCode, draft.CreditsApplied, draft.TotalAmount,
	).Scan(&draft.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("draft %s is no longer editable", draft.Token)
	}
	if err != nil {
		return fmt.Errorf("failed to update draft passengers: %w", err)
	}

	return nil
}

// MarkPaymentPending records the gateway reference and moves the draft to
// payment_pending. The hold window is extended to cover the payment step.
func (r *DraftBookingRepository) MarkPaymentPending(draftID, reference string, heldUntil time.Time) error {
	query := `
		UPDATE draft_bookings
		SET status = 'payment_pending', payment_reference = $2,
			held_until = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'held'
	`

	result, err := r.db.Exec(query, draftID, reference, heldUntil)
	if err != nil {
		return fmt.Errorf("failed to mark draft payment pending: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("draft %s is not held", draftID)
	}

	return nil
}

// MarkConfirmed closes a draft on the commit transaction. The status guard
// keeps a racing settle attempt from confirming the same draft twice.
func (r *DraftBookingRepository) MarkConfirmed(ext sqlx.Ext, draftID string) error {
	query := `
		UPDATE draft_bookings
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'payment_pending'
	`

	result, err := ext.Exec(query, draftID)
	if err != nil {
		return fmt.Errorf("failed to confirm draft: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("draft %s is not awaiting confirmation", draftID)
	}

	return nil
}

// UpdateStatus moves a live (held or payment_pending) draft to the given
// status. Settled drafts are terminal and left alone; zero affected rows is
// not an error.
func (r *DraftBookingRepository) UpdateStatus(ext sqlx.Ext, draftID string, status models.DraftStatus) error {
	query := `
		UPDATE draft_bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('held', 'payment_pending')
	`

	if _, err := ext.Exec(query, draftID, status); err != nil {
		return fmt.Errorf("failed to update draft status: %w", err)
	}

	return nil
}

// ExpireStale flips held and payment_pending drafts whose hold has lapsed to
// expired, releasing their seats from every availability query. Returns how
// many drafts were expired. Payment-pending drafts get a grace window on top
// of the TTL so a slow gateway callback is not raced by the sweeper.
func (r *DraftBookingRepository) ExpireStale(paymentGrace time.Duration) (int, error) {
	query := `
		UPDATE draft_bookings
		SET status = 'expired', updated_at = NOW()
		WHERE (status = 'held' AND held_until < NOW())
		   OR (status = 'payment_pending' AND held_until + $1::interval < NOW())
	`

	grace := fmt.Sprintf("%d seconds", int(paymentGrace.Seconds()))
	result, err := r.db.Exec(query, grace)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale drafts: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}
