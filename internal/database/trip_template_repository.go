package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// TripTemplateRepository handles trip_templates database operations
type TripTemplateRepository struct {
	db *sqlx.DB
}

// NewTripTemplateRepository creates a new TripTemplateRepository
func NewTripTemplateRepository(db *sqlx.DB) *TripTemplateRepository {
	return &TripTemplateRepository{db: db}
}

const tripTemplateColumns = `
	id, pickup_city_id, dropoff_city_id, vehicle_type_id, vehicle_id,
	time_slot_id, price, start_date, end_date, recur_unit, recur_days,
	status, created_at, updated_at`

// GetByID returns a single trip template
func (r *TripTemplateRepository) GetByID(templateID string) (*models.TripTemplate, error) {
	query := `SELECT ` + tripTemplateColumns + ` FROM trip_templates WHERE id = $1`

	var template models.TripTemplate
	err := r.db.Get(&template, query, templateID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "trip template", Key: templateID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip template: %w", err)
	}

	return &template, nil
}

// GetActive returns all active templates whose date window covers the given
// date. The recurrence rule is applied in memory by the caller.
func (r *TripTemplateRepository) GetActive(date time.Time) ([]models.TripTemplate, error) {
	query := `
		SELECT ` + tripTemplateColumns + `
		FROM trip_templates
		WHERE status = 'active'
		  AND start_date <= $1
		  AND end_date >= $1
	`

	var templates []models.TripTemplate
	if err := r.db.Select(&templates, query, date); err != nil {
		return nil, fmt.Errorf("failed to get active templates: %w", err)
	}

	return templates, nil
}

// GetAllActive returns every active template, regardless of window. Used by
// the instance pre-creation sweep.
func (r *TripTemplateRepository) GetAllActive() ([]models.TripTemplate, error) {
	query := `SELECT ` + tripTemplateColumns + ` FROM trip_templates WHERE status = 'active'`

	var templates []models.TripTemplate
	if err := r.db.Select(&templates, query); err != nil {
		return nil, fmt.Errorf("failed to get active templates: %w", err)
	}

	return templates, nil
}

// SearchRoute returns search rows for a city pair on a date: template, route
// names, departure time, price, seats left (capacity minus confirmed seats on
// the instance, if one exists yet) and the route's review aggregate.
// Recurrence filtering happens in the service, seat math here.
func (r *TripTemplateRepository) SearchRoute(pickupCityID, dropoffCityID string, date time.Time) ([]models.TripSearchResult, error) {
	query := `
		SELECT t.id AS template_id,
			   pc.name AS pickup_city,
			   dc.name AS dropoff_city,
			   vt.name AS vehicle_type,
			   vt.capacity,
			   ts.departure_time,
			   t.price,
			   vt.capacity - COALESCE(ti.booked_seats, 0) AS seats_left,
			   COALESCE(rv.review_count, 0) AS review_count,
			   COALESCE(rv.average_rating, 0) AS average_rating
		FROM trip_templates t
		JOIN cities pc ON pc.id = t.pickup_city_id
		JOIN cities dc ON dc.id = t.dropoff_city_id
		JOIN vehicle_types vt ON vt.id = t.vehicle_type_id
		JOIN time_slots ts ON ts.id = t.time_slot_id
		LEFT JOIN trip_instances ti ON ti.template_id = t.id AND ti.trip_date = $3
		LEFT JOIN (
			SELECT template_id, COUNT(*) AS review_count, AVG(rating) AS average_rating
			FROM reviews
			GROUP BY template_id
		) rv ON rv.template_id = t.id
		WHERE t.pickup_city_id = $1
		  AND t.dropoff_city_id = $2
		  AND t.status = 'active'
		  AND t.start_date <= $3
		  AND t.end_date >= $3
		ORDER BY ts.departure_time
	`

	var results []models.TripSearchResult
	if err := r.db.Select(&results, query, pickupCityID, dropoffCityID, date); err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}

	return results, nil
}
