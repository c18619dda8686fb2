package services

import (
	"fmt"
	"time"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// SeatStatus classifies one seat in a seat map
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatTaken     SeatStatus = "taken" // paid+confirmed booking owns it
	SeatHeld      SeatStatus = "held"  // live draft hold
)

// SeatInfo is one entry of a seat map
type SeatInfo struct {
	SeatNumber string     `json:"seat_number"`
	Status     SeatStatus `json:"status"`
}

// AvailabilityResult is the outcome of an availability check
type AvailabilityResult struct {
	Available bool     `json:"available"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// SeatInventoryService computes seat availability for (template, date)
// pairs. The same predicate runs twice per purchase: once advisory when the
// user picks seats, and again authoritatively inside the commit transaction
// after the trip-instance row lock is taken.
type SeatInventoryService struct {
	bookingRepo *database.BookingRepository
	draftRepo   *database.DraftBookingRepository
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewSeatInventoryService creates a new SeatInventoryService
func NewSeatInventoryService(
	bookingRepo *database.BookingRepository,
	draftRepo *database.DraftBookingRepository,
	catalogRepo *database.CatalogRepository,
	logger *logrus.Logger,
) *SeatInventoryService {
	return &SeatInventoryService{
		bookingRepo: bookingRepo,
		draftRepo:   draftRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// CheckAvailability runs the seat predicate on the given executor. A seat
// conflicts iff a paid non-cancelled booking owns it, or a live draft other
// than excludeDraftID holds it. Callers outside a transaction pass the plain
// connection (advisory); the commit path passes its transaction
// (authoritative).
func (s *SeatInventoryService) CheckAvailability(
	ext sqlx.Ext,
	templateID string,
	tripDate time.Time,
	requestedSeats []string,
	excludeDraftID string,
) (*AvailabilityResult, error) {
	taken, err := s.bookingRepo.TakenSeats(ext, templateID, tripDate)
	if err != nil {
		return nil, err
	}

	held, err := s.draftRepo.HeldSeats(ext, templateID, tripDate, excludeDraftID)
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]bool, len(taken)+len(held))
	for _, seat := range taken {
		blocked[seat] = true
	}
	for _, seat := range held {
		blocked[seat] = true
	}

	var conflicts []string
	for _, seat := range requestedSeats {
		if blocked[seat] {
			conflicts = append(conflicts, seat)
		}
	}

	return &AvailabilityResult{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}

// CheckCapacity verifies that confirming seatCount more seats keeps the
// instance within its vehicle's capacity. Runs against the locked instance
// state inside the commit transaction.
func (s *SeatInventoryService) CheckCapacity(
	templateID string,
	tripDate time.Time,
	bookedSeats, seatCount int,
) error {
	vt, err := s.catalogRepo.GetVehicleTypeForTemplate(templateID)
	if err != nil {
		return err
	}

	if bookedSeats+seatCount > vt.Capacity {
		return &models.CapacityExceededError{
			TemplateID: templateID,
			TripDate:   tripDate.Format("2006-01-02"),
			Capacity:   vt.Capacity,
			Requested:  seatCount,
			Booked:     bookedSeats,
		}
	}

	return nil
}

// ValidateSeatNumbers rejects seat labels outside the vehicle's 1..capacity
// range before anything is held
func (s *SeatInventoryService) ValidateSeatNumbers(templateID string, seats []string) error {
	vt, err := s.catalogRepo.GetVehicleTypeForTemplate(templateID)
	if err != nil {
		return err
	}

	valid := make(map[string]bool, vt.Capacity)
	for i := 1; i <= vt.Capacity; i++ {
		valid[fmt.Sprint(i)] = true
	}

	for _, seat := range seats {
		if !valid[seat] {
			return models.NewValidationError("seats", fmt.Sprintf("seat %s does not exist on this vehicle", seat))
		}
	}

	return nil
}

// SeatMap returns every seat of the vehicle with its current status, for the
// seat-selection page
func (s *SeatInventoryService) SeatMap(ext sqlx.Ext, templateID string, tripDate time.Time) ([]SeatInfo, error) {
	vt, err := s.catalogRepo.GetVehicleTypeForTemplate(templateID)
	if err != nil {
		return nil, err
	}

	taken, err := s.bookingRepo.TakenSeats(ext, templateID, tripDate)
	if err != nil {
		return nil, err
	}

	held, err := s.draftRepo.HeldSeats(ext, templateID, tripDate, "")
	if err != nil {
		return nil, err
	}

	takenSet := make(map[string]bool, len(taken))
	for _, seat := range taken {
		takenSet[seat] = true
	}
	heldSet := make(map[string]bool, len(held))
	for _, seat := range held {
		heldSet[seat] = true
	}

	seats := make([]SeatInfo, 0, vt.Capacity)
	for i := 1; i <= vt.Capacity; i++ {
		label := fmt.Sprint(i)
		status := SeatAvailable
		if takenSet[label] {
			status = SeatTaken
		} else if heldSet[label] {
			status = SeatHeld
		}
		seats = append(seats, SeatInfo{SeatNumber: label, Status: status})
	}

	return seats, nil
}
