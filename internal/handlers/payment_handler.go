package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dgctransports/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentHandler handles gateway callbacks and webhooks
type PaymentHandler struct {
	bookings *services.BookingService
	paystack *services.PaystackService
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(bookings *services.BookingService, paystack *services.PaystackService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		bookings: bookings,
		paystack: paystack,
		logger:   logger,
	}
}

// Verify handles GET /api/v1/payments/verify?reference=...
// The browser lands here after the gateway redirect. Verification hits the
// gateway's API; the redirect itself proves nothing.
func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		respondBadRequest(c, "reference is required")
		return
	}

	result, err := h.bookings.Confirm(reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Payment confirmed",
		"booking": result,
	})
}

// paystackEvent is the envelope of a webhook delivery
type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Webhook handles POST /api/v1/payments/webhook
// Covers users who paid but never returned from the gateway. The signature
// is checked against the raw body before anything is parsed; unsigned or
// mis-signed deliveries are dropped.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "failed to read body")
		return
	}

	signature := c.GetHeader("x-paystack-signature")
	if !h.paystack.VerifyWebhookSignature(body, signature) {
		h.logger.WithField("ip", c.ClientIP()).Warn("Webhook with invalid signature dropped")
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid signature"})
		return
	}

	var event paystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondBadRequest(c, "invalid payload")
		return
	}

	if event.Event != "charge.success" || event.Data.Reference == "" {
		// Acknowledge unrelated events so the gateway stops retrying them
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if _, err := h.bookings.Confirm(event.Data.Reference); err != nil {
		// A non-2xx makes the gateway redeliver later, which is what we
		// want for transient failures
		h.logger.WithError(err).WithField("reference", event.Data.Reference).Error("Webhook confirmation failed")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
