package handlers

import (
	"errors"
	"net/http"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to HTTP responses. Typed errors carry
// their own status; anything unrecognized becomes a 500 with a generic
// message so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": validation.Error(),
			"field":   validation.Field,
		})
		return
	}

	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": notFound.Error(),
		})
		return
	}

	var conflict *models.SeatConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"status":    "error",
			"message":   conflict.Error(),
			"conflicts": conflict.Seats,
		})
		return
	}

	var capacity *models.CapacityExceededError
	if errors.As(err, &capacity) {
		c.JSON(http.StatusConflict, gin.H{
			"status":  "error",
			"message": capacity.Error(),
		})
		return
	}

	var credits *models.InsufficientCreditsError
	if errors.As(err, &credits) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"status":  "error",
			"message": credits.Error(),
		})
		return
	}

	var gateway *models.GatewayError
	if errors.As(err, &gateway) {
		status := http.StatusPaymentRequired
		if gateway.Unavailable {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"status":  "error",
			"message": gateway.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "Something went wrong. Please try again later.",
	})
}

// respondBadRequest is the short form for binding failures
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  "error",
		"message": message,
	})
}
