package services

import (
	"time"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// paymentGrace is how long past its hold a payment_pending draft survives
// before the sweeper reclaims its seats. Covers slow gateway callbacks.
const paymentGrace = 10 * time.Minute

// DraftExpirationService releases seats from drafts whose hold has lapsed.
// Expiry is a status flip: availability queries already ignore drafts past
// held_until, so the sweep only keeps the table tidy and the seat counts
// honest for reporting.
type DraftExpirationService struct {
	draftRepo *database.DraftBookingRepository
	logger    *logrus.Logger
}

// NewDraftExpirationService creates a new DraftExpirationService
func NewDraftExpirationService(draftRepo *database.DraftBookingRepository, logger *logrus.Logger) *DraftExpirationService {
	return &DraftExpirationService{
		draftRepo: draftRepo,
		logger:    logger,
	}
}

// SweepOnce expires every stale draft and logs the count
func (s *DraftExpirationService) SweepOnce() {
	expired, err := s.draftRepo.ExpireStale(paymentGrace)
	if err != nil {
		s.logger.WithError(err).Error("Draft expiration sweep failed")
		return
	}

	if expired > 0 {
		s.logger.WithField("expired", expired).Info("Released lapsed seat holds")
	}
}
