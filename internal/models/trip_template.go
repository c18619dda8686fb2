package models

import (
	"time"

	"github.com/lib/pq"
)

// RecurrenceUnit is how often a trip template repeats
// Matches PostgreSQL ENUM: recurrence_unit
type RecurrenceUnit string

const (
	RecurDaily   RecurrenceUnit = "day"
	RecurWeekly  RecurrenceUnit = "week"
	RecurMonthly RecurrenceUnit = "month"
	RecurYearly  RecurrenceUnit = "year"
)

// TemplateStatus represents the lifecycle of a trip template
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusInactive TemplateStatus = "inactive"
)

// TripTemplate is a recurring trip definition: route + vehicle + departure
// time + recurrence rule, not tied to a calendar date. Immutable reference
// data from the booking flow's point of view.
type TripTemplate struct {
	ID            string         `json:"id" db:"id"`
	PickupCityID  string         `json:"pickup_city_id" db:"pickup_city_id"`
	DropoffCityID string         `json:"dropoff_city_id" db:"dropoff_city_id"`
	VehicleTypeID string         `json:"vehicle_type_id" db:"vehicle_type_id"`
	VehicleID     *string        `json:"vehicle_id,omitempty" db:"vehicle_id"`
	TimeSlotID    string         `json:"time_slot_id" db:"time_slot_id"`
	Price         float64        `json:"price" db:"price"`
	StartDate     time.Time      `json:"start_date" db:"start_date"`
	EndDate       time.Time      `json:"end_date" db:"end_date"`
	RecurUnit     RecurrenceUnit `json:"recur_unit" db:"recur_unit"`
	RecurDays     pq.StringArray `json:"recur_days" db:"recur_days"`
	Status        TemplateStatus `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// RunsOn reports whether the template has a departure on the given date.
// Weekly templates match their day-of-week set; monthly match the start
// date's day of month, yearly the start date's month and day.
func (t *TripTemplate) RunsOn(date time.Time) bool {
	day := truncateToDay(date)
	if day.Before(truncateToDay(t.StartDate)) || day.After(truncateToDay(t.EndDate)) {
		return false
	}

	switch t.RecurUnit {
	case RecurDaily:
		return true
	case RecurWeekly:
		weekday := day.Weekday().String()
		for _, d := range t.RecurDays {
			if d == weekday {
				return true
			}
		}
		return false
	case RecurMonthly:
		return day.Day() == t.StartDate.Day()
	case RecurYearly:
		return day.Day() == t.StartDate.Day() && day.Month() == t.StartDate.Month()
	default:
		return false
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TripSearchResult is a search row joining a template with its route,
// departure time and remaining seat count for the requested date
type TripSearchResult struct {
	TemplateID    string  `json:"template_id" db:"template_id"`
	PickupCity    string  `json:"pickup_city" db:"pickup_city"`
	DropoffCity   string  `json:"dropoff_city" db:"dropoff_city"`
	VehicleType   string  `json:"vehicle_type" db:"vehicle_type"`
	Capacity      int     `json:"capacity" db:"capacity"`
	DepartureTime string  `json:"departure_time" db:"departure_time"`
	Price         float64 `json:"price" db:"price"`
	SeatsLeft     int     `json:"seats_left" db:"seats_left"`
	ReviewCount   int     `json:"review_count" db:"review_count"`
	AverageRating float64 `json:"average_rating" db:"average_rating"`
}
