package services

import (
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Mailer delivers booking notifications. Delivery mechanics live behind
// this interface; the default implementation only records the intent, which
// is also what tests want.
type Mailer interface {
	SendBookingConfirmation(email string, pnrs []string, view *models.BookingView) error
	SendCancellationNotice(email, pnr string) error
}

// LogMailer is a Mailer that writes structured log lines instead of email
type LogMailer struct {
	logger *logrus.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendBookingConfirmation logs the confirmation intent
func (m *LogMailer) SendBookingConfirmation(email string, pnrs []string, view *models.BookingView) error {
	m.logger.WithFields(logrus.Fields{
		"email": email,
		"pnrs":  pnrs,
	}).Info("Booking confirmation email queued")
	return nil
}

// SendCancellationNotice logs the cancellation intent
func (m *LogMailer) SendCancellationNotice(email, pnr string) error {
	m.logger.WithFields(logrus.Fields{
		"email": email,
		"pnr":   pnr,
	}).Info("Cancellation email queued")
	return nil
}
