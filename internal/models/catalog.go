package models

import "time"

// City represents a serviced city
type City struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	State     *string   `json:"state,omitempty" db:"state"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VehicleType represents a class of vehicle (e.g. Sprinter, Coach) and
// carries the seat capacity the inventory guard enforces
type VehicleType struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Capacity  int       `json:"capacity" db:"capacity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Vehicle represents a physical vehicle assigned to templates
type Vehicle struct {
	ID            string    `json:"id" db:"id"`
	VehicleTypeID string    `json:"vehicle_type_id" db:"vehicle_type_id"`
	PlateNumber   string    `json:"plate_number" db:"plate_number"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TimeSlot represents a departure time of day
type TimeSlot struct {
	ID            string    `json:"id" db:"id"`
	DepartureTime string    `json:"departure_time" db:"departure_time"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
