package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// CreditService is the credits & referral ledger. Balance changes are
// conditional updates paired with an audit row, and always run on the
// caller's transaction so a failed booking commit rolls them back too.
type CreditService struct {
	userRepo *database.UserRepository
	enabled  bool
	logger   *logrus.Logger
}

// NewCreditService creates a new CreditService
func NewCreditService(userRepo *database.UserRepository, referralEnabled bool, logger *logrus.Logger) *CreditService {
	return &CreditService{
		userRepo: userRepo,
		enabled:  referralEnabled,
		logger:   logger,
	}
}

// Debit takes amount off the user's balance, failing with
// InsufficientCreditsError when the balance does not cover it
func (s *CreditService) Debit(ext sqlx.Ext, userID string, amount float64, bookingID *string) error {
	if amount <= 0 {
		return nil
	}

	if err := s.userRepo.DebitCredits(ext, userID, amount); err != nil {
		return err
	}

	audit := &models.CreditTransaction{
		UserID:    userID,
		Type:      models.CreditTxDebit,
		Amount:    amount,
		Reason:    "booking_payment",
		BookingID: bookingID,
	}

	return s.userRepo.RecordCreditTransaction(ext, audit)
}

// ValidateReferralCode resolves a referral code to its owner before the
// draft stores it. Unknown codes and self-referrals are rejected up front so
// the user can fix the form, not at commit time.
func (s *CreditService) ValidateReferralCode(code string, userID *string) (*models.User, error) {
	if !s.enabled {
		return nil, models.NewValidationError("referral_code", "referral program is disabled")
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	referrer, err := s.userRepo.GetByAffiliateID(normalized)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, models.NewValidationError("referral_code", "unknown referral code")
	}

	if userID != nil && referrer.ID == *userID {
		return nil, models.NewValidationError("referral_code", "you cannot refer yourself")
	}

	return referrer, nil
}

// AwardSignup credits the owner of a referral code for bringing in a new
// account. Runs on the plain connection; registration has no surrounding
// transaction worth joining.
func (s *CreditService) AwardSignup(ext sqlx.Ext, code string, newUserID string) error {
	if !s.enabled {
		return nil
	}

	referrer, err := s.ValidateReferralCode(code, &newUserID)
	if err != nil {
		s.logger.WithField("referral_code", code).WithError(err).Warn("Skipping signup referral award")
		return nil
	}

	setting, err := s.userRepo.GetReferralSetting()
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	if setting.CreditsPerReferral <= 0 {
		return nil
	}

	if err := s.userRepo.CreditCredits(ext, referrer.ID, setting.CreditsPerReferral); err != nil {
		return fmt.Errorf("failed to award signup referral credit: %w", err)
	}

	audit := &models.CreditTransaction{
		UserID: referrer.ID,
		Type:   models.CreditTxCredit,
		Amount: setting.CreditsPerReferral,
		Reason: "referral_signup",
	}

	return s.userRepo.RecordCreditTransaction(ext, audit)
}

// AwardReferral credits the owner of the referral code inside the booking's
// commit transaction. The award amount comes from the global referral
// settings row; a missing settings row means no award, not a failure.
func (s *CreditService) AwardReferral(ext sqlx.Ext, code string, buyerUserID *string, bookingID string) error {
	if !s.enabled {
		return nil
	}

	referrer, err := s.ValidateReferralCode(code, buyerUserID)
	if err != nil {
		// A code that stopped resolving between draft and commit should not
		// sink the whole purchase
		s.logger.WithField("referral_code", code).WithError(err).Warn("Skipping referral award")
		return nil
	}

	setting, err := s.userRepo.GetReferralSetting()
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	if setting.CreditsPerReferral <= 0 {
		return nil
	}

	if err := s.userRepo.CreditCredits(ext, referrer.ID, setting.CreditsPerReferral); err != nil {
		return fmt.Errorf("failed to award referral credit: %w", err)
	}

	audit := &models.CreditTransaction{
		UserID:    referrer.ID,
		Type:      models.CreditTxCredit,
		Amount:    setting.CreditsPerReferral,
		Reason:    "referral_award",
		BookingID: &bookingID,
	}

	if err := s.userRepo.RecordCreditTransaction(ext, audit); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"referrer":   referrer.ID,
		"booking_id": bookingID,
		"amount":     setting.CreditsPerReferral,
	}).Info("Referral credit awarded")

	return nil
}
