package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TripInstanceRepository handles trip_instances database operations. The
// table carries a UNIQUE (template_id, trip_date) constraint; every create
// path goes through the ON CONFLICT upsert so concurrent resolvers can never
// produce duplicate instances.
type TripInstanceRepository struct {
	db *sqlx.DB
}

// NewTripInstanceRepository creates a new TripInstanceRepository
func NewTripInstanceRepository(db *sqlx.DB) *TripInstanceRepository {
	return &TripInstanceRepository{db: db}
}

const tripInstanceColumns = `id, template_id, trip_date, booked_seats, status, created_at, updated_at`

// Resolve finds or lazily creates the instance for (template, date).
// Idempotent under concurrent callers: the insert is a no-op on conflict and
// the follow-up select returns whichever row won.
func (r *TripInstanceRepository) Resolve(templateID string, tripDate time.Time) (*models.TripInstance, error) {
	return r.ResolveExt(r.db, templateID, tripDate)
}

// ResolveExt is Resolve running on the given executor, so the commit
// transaction can resolve instances without leaving the transaction.
func (r *TripInstanceRepository) ResolveExt(ext sqlx.Ext, templateID string, tripDate time.Time) (*models.TripInstance, error) {
	insert := `
		INSERT INTO trip_instances (id, template_id, trip_date, booked_seats, status)
		VALUES ($1, $2, $3, 0, 'scheduled')
		ON CONFLICT (template_id, trip_date) DO NOTHING
	`

	if _, err := ext.Exec(insert, uuid.New().String(), templateID, tripDate); err != nil {
		return nil, fmt.Errorf("failed to upsert trip instance: %w", err)
	}

	query := `
		SELECT ` + tripInstanceColumns + `
		FROM trip_instances
		WHERE template_id = $1 AND trip_date = $2
	`

	var instance models.TripInstance
	if err := sqlx.Get(ext, &instance, query, templateID, tripDate); err != nil {
		return nil, fmt.Errorf("failed to fetch trip instance after upsert: %w", err)
	}

	return &instance, nil
}

// GetByTemplateAndDate returns an instance if one exists, sql.ErrNoRows
// mapped to NotFoundError otherwise
func (r *TripInstanceRepository) GetByTemplateAndDate(templateID string, tripDate time.Time) (*models.TripInstance, error) {
	query := `
		SELECT ` + tripInstanceColumns + `
		FROM trip_instances
		WHERE template_id = $1 AND trip_date = $2
	`

	var instance models.TripInstance
	err := r.db.Get(&instance, query, templateID, tripDate)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "trip instance", Key: fmt.Sprintf("%s/%s", templateID, tripDate.Format("2006-01-02"))}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip instance: %w", err)
	}

	return &instance, nil
}

// LockForUpdate takes a row lock on the instance inside tx, serializing
// concurrent booking commits for the same (template, date). Returns the
// locked row's current state.
func (r *TripInstanceRepository) LockForUpdate(tx *sqlx.Tx, instanceID string) (*models.TripInstance, error) {
	query := `
		SELECT ` + tripInstanceColumns + `
		FROM trip_instances
		WHERE id = $1
		FOR UPDATE
	`

	var instance models.TripInstance
	err := tx.Get(&instance, query, instanceID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "trip instance", Key: instanceID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock trip instance: %w", err)
	}

	return &instance, nil
}

// AddBookedSeats adjusts the booked-seat counter by delta (negative on
// cancellation). Must only run inside the same transaction that changes the
// booking rows it accounts for.
func (r *TripInstanceRepository) AddBookedSeats(ext sqlx.Ext, instanceID string, delta int) error {
	query := `
		UPDATE trip_instances
		SET booked_seats = booked_seats + $2, updated_at = NOW()
		WHERE id = $1 AND booked_seats + $2 >= 0
	`

	result, err := ext.Exec(query, instanceID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust booked seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booked seats adjustment by %d rejected for instance %s", delta, instanceID)
	}

	return nil
}

// CountForTemplateRange reports how many instances already exist for a
// template between two dates. Used by the pre-creation sweep's stats.
func (r *TripInstanceRepository) CountForTemplateRange(templateID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM trip_instances
		WHERE template_id = $1 AND trip_date BETWEEN $2 AND $3
	`

	var count int
	if err := r.db.Get(&count, query, templateID, from, to); err != nil {
		return 0, fmt.Errorf("failed to count trip instances: %w", err)
	}

	return count, nil
}
