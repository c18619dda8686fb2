package database

import (
	"database/sql"
	"fmt"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// CatalogRepository handles the static reference tables: cities, vehicle
// types, vehicles and time slots. All of it is back-office-maintained data;
// the booking flow only reads it.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetCities returns all active cities ordered by name
func (r *CatalogRepository) GetCities() ([]models.City, error) {
	query := `
		SELECT id, name, state, status, created_at
		FROM cities
		WHERE status = 'active'
		ORDER BY name
	`

	var cities []models.City
	if err := r.db.Select(&cities, query); err != nil {
		return nil, fmt.Errorf("failed to get cities: %w", err)
	}

	return cities, nil
}

// GetCityByID returns a single city
func (r *CatalogRepository) GetCityByID(cityID string) (*models.City, error) {
	query := `
		SELECT id, name, state, status, created_at
		FROM cities
		WHERE id = $1
	`

	var city models.City
	err := r.db.Get(&city, query, cityID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "city", Key: cityID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get city: %w", err)
	}

	return &city, nil
}

// GetVehicleTypeByID returns a vehicle type with its seat capacity
func (r *CatalogRepository) GetVehicleTypeByID(vehicleTypeID string) (*models.VehicleType, error) {
	query := `
		SELECT id, name, capacity, created_at
		FROM vehicle_types
		WHERE id = $1
	`

	var vt models.VehicleType
	err := r.db.Get(&vt, query, vehicleTypeID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "vehicle type", Key: vehicleTypeID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle type: %w", err)
	}

	return &vt, nil
}

// GetVehicleTypeForTemplate returns the vehicle type a template is assigned,
// which is where the capacity bound for the inventory guard comes from
func (r *CatalogRepository) GetVehicleTypeForTemplate(templateID string) (*models.VehicleType, error) {
	query := `
		SELECT vt.id, vt.name, vt.capacity, vt.created_at
		FROM vehicle_types vt
		JOIN trip_templates t ON t.vehicle_type_id = vt.id
		WHERE t.id = $1
	`

	var vt models.VehicleType
	err := r.db.Get(&vt, query, templateID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "template", Key: templateID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle type for template: %w", err)
	}

	return &vt, nil
}

// GetTimeSlotByID returns a departure time slot
func (r *CatalogRepository) GetTimeSlotByID(timeSlotID string) (*models.TimeSlot, error) {
	query := `
		SELECT id, departure_time, created_at
		FROM time_slots
		WHERE id = $1
	`

	var slot models.TimeSlot
	err := r.db.Get(&slot, query, timeSlotID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "time slot", Key: timeSlotID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time slot: %w", err)
	}

	return &slot, nil
}
