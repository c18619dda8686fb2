package services

import (
	"time"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// TripSearchResponse is one direction's worth of search results
type TripSearchResponse struct {
	Date    string                    `json:"date"`
	Results []models.TripSearchResult `json:"results"`
}

// RoundTripSearchResponse pairs outbound and return results for the
// round-trip search page
type RoundTripSearchResponse struct {
	Outbound *TripSearchResponse `json:"outbound"`
	Return   *TripSearchResponse `json:"return,omitempty"`
}

// TripSearchService answers route searches. The SQL returns every active
// template on the city pair; the recurrence rule is applied here because it
// lives in Go, not in the schema.
type TripSearchService struct {
	templateRepo *database.TripTemplateRepository
	catalogRepo  *database.CatalogRepository
	logger       *logrus.Logger
}

// NewTripSearchService creates a new TripSearchService
func NewTripSearchService(
	templateRepo *database.TripTemplateRepository,
	catalogRepo *database.CatalogRepository,
	logger *logrus.Logger,
) *TripSearchService {
	return &TripSearchService{
		templateRepo: templateRepo,
		catalogRepo:  catalogRepo,
		logger:       logger,
	}
}

// Search returns bookable departures between two cities on a date
func (s *TripSearchService) Search(pickupCityID, dropoffCityID, dateStr string) (*TripSearchResponse, error) {
	if pickupCityID == "" || dropoffCityID == "" {
		return nil, models.NewValidationError("route", "pickup and dropoff cities are required")
	}
	if pickupCityID == dropoffCityID {
		return nil, models.NewValidationError("route", "pickup and dropoff must differ")
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, models.NewValidationError("date", "must be formatted YYYY-MM-DD")
	}
	if date.Before(todayUTC()) {
		return nil, models.NewValidationError("date", "cannot search past dates")
	}

	rows, err := s.templateRepo.SearchRoute(pickupCityID, dropoffCityID, date)
	if err != nil {
		return nil, err
	}

	templates, err := s.templateRepo.GetActive(date)
	if err != nil {
		return nil, err
	}
	runs := make(map[string]bool, len(templates))
	for i := range templates {
		if templates[i].RunsOn(date) {
			runs[templates[i].ID] = true
		}
	}

	results := make([]models.TripSearchResult, 0, len(rows))
	for _, row := range rows {
		if runs[row.TemplateID] {
			results = append(results, row)
		}
	}

	return &TripSearchResponse{
		Date:    date.Format("2006-01-02"),
		Results: results,
	}, nil
}

// SearchRoundTrip searches the outbound pair and the reversed pair for the
// return date
func (s *TripSearchService) SearchRoundTrip(pickupCityID, dropoffCityID, dateStr, returnDateStr string) (*RoundTripSearchResponse, error) {
	outbound, err := s.Search(pickupCityID, dropoffCityID, dateStr)
	if err != nil {
		return nil, err
	}

	returnLeg, err := s.Search(dropoffCityID, pickupCityID, returnDateStr)
	if err != nil {
		return nil, err
	}

	outDate, _ := time.Parse("2006-01-02", dateStr)
	retDate, _ := time.Parse("2006-01-02", returnDateStr)
	if retDate.Before(outDate) {
		return nil, models.NewValidationError("return_date", "return cannot be before departure")
	}

	return &RoundTripSearchResponse{Outbound: outbound, Return: returnLeg}, nil
}

// Cities lists the bookable cities for the search form
func (s *TripSearchService) Cities() ([]models.City, error) {
	return s.catalogRepo.GetCities()
}

func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
