package models

import "time"

// InstanceStatus represents the lifecycle of a trip instance
type InstanceStatus string

const (
	InstanceStatusScheduled InstanceStatus = "scheduled"
	InstanceStatusDeparted  InstanceStatus = "departed"
	InstanceStatusCancelled InstanceStatus = "cancelled"
)

// TripInstance is a template materialized for one concrete calendar date.
// At most one instance exists per (template_id, trip_date); the unique
// constraint backs the find-or-create upsert. BookedSeats is only ever
// updated inside the same transaction that flips a booking's status.
type TripInstance struct {
	ID          string         `json:"id" db:"id"`
	TemplateID  string         `json:"template_id" db:"template_id"`
	TripDate    time.Time      `json:"trip_date" db:"trip_date"`
	BookedSeats int            `json:"booked_seats" db:"booked_seats"`
	Status      InstanceStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}
