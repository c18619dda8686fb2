package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgctransports/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// TripHandler handles trip search and seat-map requests
type TripHandler struct {
	search    *services.TripSearchService
	inventory *services.SeatInventoryService
	db        *sqlx.DB
	logger    *logrus.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(
	search *services.TripSearchService,
	inventory *services.SeatInventoryService,
	db *sqlx.DB,
	logger *logrus.Logger,
) *TripHandler {
	return &TripHandler{
		search:    search,
		inventory: inventory,
		db:        db,
		logger:    logger,
	}
}

// SearchTrips handles GET /api/v1/trips/search
// Query params: from, to, date, optionally return_date for round trips and
// seats to hide departures that cannot fit the party
func (h *TripHandler) SearchTrips(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	date := c.Query("date")
	returnDate := c.Query("return_date")

	seats := 0
	if raw := c.Query("seats"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondBadRequest(c, "seats must be a positive number")
			return
		}
		seats = parsed
	}

	if returnDate != "" {
		response, err := h.search.SearchRoundTrip(from, to, date, returnDate)
		if err != nil {
			respondError(c, err)
			return
		}
		filterBySeats(response.Outbound, seats)
		filterBySeats(response.Return, seats)
		c.JSON(http.StatusOK, response)
		return
	}

	response, err := h.search.Search(from, to, date)
	if err != nil {
		respondError(c, err)
		return
	}

	filterBySeats(response, seats)
	c.JSON(http.StatusOK, response)
}

func filterBySeats(response *services.TripSearchResponse, seats int) {
	if response == nil || seats <= 0 {
		return
	}
	kept := response.Results[:0]
	for _, result := range response.Results {
		if result.SeatsLeft >= seats {
			kept = append(kept, result)
		}
	}
	response.Results = kept
}

// GetCities handles GET /api/v1/cities
func (h *TripHandler) GetCities(c *gin.Context) {
	cities, err := h.search.Cities()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// GetSeatMap handles GET /api/v1/trips/:templateID/seats?date=YYYY-MM-DD
// The map is advisory: the authoritative check runs again at commit time.
func (h *TripHandler) GetSeatMap(c *gin.Context) {
	templateID := c.Param("templateID")

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		respondBadRequest(c, "date must be formatted YYYY-MM-DD")
		return
	}

	seats, err := h.inventory.SeatMap(h.db, templateID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template_id": templateID,
		"date":        date.Format("2006-01-02"),
		"seats":       seats,
	})
}
