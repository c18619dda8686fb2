package handlers

import (
	"net/http"

	"github.com/dgctransports/booking-backend/internal/middleware"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/dgctransports/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles the draft booking flow and PNR lookups
type BookingHandler struct {
	bookings *services.BookingService
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// Reserve handles POST /api/v1/bookings/reserve
// Holds the requested seats as a draft. Works for guests; a signed-in user
// gets the draft linked to their account.
func (h *BookingHandler) Reserve(c *gin.Context) {
	var req models.ReserveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format")
		return
	}

	draft, err := h.bookings.ReserveDraft(middleware.UserIDPtr(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, draft)
}

// GetDraft handles GET /api/v1/bookings/draft/:token
func (h *BookingHandler) GetDraft(c *gin.Context) {
	draft, err := h.bookings.GetDraft(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// AttachPassengers handles POST /api/v1/bookings/draft/:token/passengers
func (h *BookingHandler) AttachPassengers(c *gin.Context) {
	var req models.AttachPassengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format")
		return
	}

	draft, err := h.bookings.AttachPassengers(c.Param("token"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// Pay handles POST /api/v1/bookings/draft/:token/pay
// Returns the gateway authorization URL, or the confirmed PNRs when credits
// cover the full amount.
func (h *BookingHandler) Pay(c *gin.Context) {
	result, err := h.bookings.InitiatePayment(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Lookup handles GET /api/v1/bookings/:pnr
func (h *BookingHandler) Lookup(c *gin.Context) {
	view, err := h.bookings.Lookup(c.Param("pnr"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// TicketQR handles GET /api/v1/bookings/:pnr/qr
func (h *BookingHandler) TicketQR(c *gin.Context) {
	png, err := h.bookings.TicketQR(c.Param("pnr"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// Cancel handles POST /api/v1/bookings/:pnr/cancel
// Requires authentication: the booking owner, or staff.
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "Authentication required",
		})
		return
	}

	if err := h.bookings.Cancel(c.Param("pnr"), &userCtx.UserID, userCtx.IsStaff()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Booking cancelled",
	})
}
