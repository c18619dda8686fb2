package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgctransports/booking-backend/internal/config"
	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/dgctransports/booking-backend/pkg/pnr"
	"github.com/dgctransports/booking-backend/pkg/qr"
	"github.com/dgctransports/booking-backend/pkg/validator"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// leg is one direction of a purchase during commit processing
type leg struct {
	templateID string
	tripDate   time.Time
	seats      []string
	which      models.RoundtripLeg
}

// PaymentInitResult is the outcome of the pay step: either a gateway
// redirect, or (for zero-amount purchases) an immediate confirmation
type PaymentInitResult struct {
	Free             bool     `json:"free"`
	AuthorizationURL string   `json:"authorization_url,omitempty"`
	Reference        string   `json:"reference"`
	PNRs             []string `json:"pnrs,omitempty"`
}

// ConfirmResult summarizes a committed purchase
type ConfirmResult struct {
	PNRs       []string `json:"pnrs"`
	AmountPaid float64  `json:"amount_paid"`
	Channel    string   `json:"channel,omitempty"`
	Reference  string   `json:"reference"`
}

// BookingService is the booking ledger and round-trip orchestrator. It owns
// the draft lifecycle (reserve -> passengers -> pay -> confirm/cancel) and
// the single commit transaction that enforces the seat-uniqueness and
// capacity invariants.
type BookingService struct {
	db           *sqlx.DB
	templateRepo *database.TripTemplateRepository
	instanceRepo *database.TripInstanceRepository
	bookingRepo  *database.BookingRepository
	draftRepo    *database.DraftBookingRepository
	paymentRepo  *database.PaymentRepository
	inventory    *SeatInventoryService
	credits      *CreditService
	gateway      PaymentGateway
	mailer       Mailer
	qrWriter     *qr.Writer
	phones       *validator.PhoneValidator
	cfg          config.BookingConfig
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	db *sqlx.DB,
	templateRepo *database.TripTemplateRepository,
	instanceRepo *database.TripInstanceRepository,
	bookingRepo *database.BookingRepository,
	draftRepo *database.DraftBookingRepository,
	paymentRepo *database.PaymentRepository,
	inventory *SeatInventoryService,
	credits *CreditService,
	gateway PaymentGateway,
	mailer Mailer,
	qrWriter *qr.Writer,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		templateRepo: templateRepo,
		instanceRepo: instanceRepo,
		bookingRepo:  bookingRepo,
		draftRepo:    draftRepo,
		paymentRepo:  paymentRepo,
		inventory:    inventory,
		credits:      credits,
		gateway:      gateway,
		mailer:       mailer,
		qrWriter:     qrWriter,
		phones:       validator.NewPhoneValidator(),
		cfg:          cfg,
		logger:       logger,
	}
}

// ============================================================================
// RESERVE (Phase 1)
// ============================================================================

// ReserveDraft validates the requested seats and creates a held draft in one
// transaction. The availability check and the hold land atomically: the
// instance rows for each leg are locked first, so two requests for the same
// seat cannot both pass the check.
func (s *BookingService) ReserveDraft(userID *string, req *models.ReserveDraftRequest) (*models.DraftResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if len(req.Seats) > s.cfg.MaxSeatsPerDraft {
		return nil, models.NewValidationError("seats", fmt.Sprintf("at most %d seats per booking", s.cfg.MaxSeatsPerDraft))
	}

	legs, err := s.legsFromRequest(req)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, l := range legs {
		template, err := s.templateRepo.GetByID(l.templateID)
		if err != nil {
			return nil, err
		}
		if template.Status != models.TemplateStatusActive {
			return nil, models.NewValidationError("template_id", "trip is not bookable")
		}
		if !template.RunsOn(l.tripDate) {
			return nil, models.NewValidationError("trip_date", "no departure on this date")
		}
		if err := s.inventory.ValidateSeatNumbers(l.templateID, l.seats); err != nil {
			return nil, err
		}
		total += template.Price * float64(len(l.seats))
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin reserve transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range legs {
		instance, err := s.instanceRepo.ResolveExt(tx, l.templateID, l.tripDate)
		if err != nil {
			return nil, err
		}
		if _, err := s.instanceRepo.LockForUpdate(tx, instance.ID); err != nil {
			return nil, err
		}

		result, err := s.inventory.CheckAvailability(tx, l.templateID, l.tripDate, l.seats, "")
		if err != nil {
			return nil, err
		}
		if !result.Available {
			return nil, &models.SeatConflictError{
				TemplateID: l.templateID,
				TripDate:   l.tripDate.Format("2006-01-02"),
				Seats:      result.Conflicts,
			}
		}
	}

	draft := &models.DraftBooking{
		UserID:      userID,
		Status:      models.DraftStatusHeld,
		TemplateID:  legs[0].templateID,
		TripDate:    legs[0].tripDate,
		Seats:       legs[0].seats,
		IsRoundtrip: req.IsRoundtrip,
		TotalAmount: total,
		HeldUntil:   time.Now().Add(s.cfg.HoldTTL),
	}
	if req.IsRoundtrip {
		draft.ReturnTemplateID = &legs[1].templateID
		rd := legs[1].tripDate
		draft.ReturnTripDate = &rd
		draft.ReturnSeats = legs[1].seats
	}

	if err := s.draftRepo.Create(tx, draft); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reserve transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"draft":     draft.Token,
		"template":  draft.TemplateID,
		"trip_date": draft.TripDate.Format("2006-01-02"),
		"seats":     len(draft.Seats),
		"roundtrip": draft.IsRoundtrip,
	}).Info("Seats held")

	return s.buildDraftResponse(draft), nil
}

// GetDraft returns the public view of a draft
func (s *BookingService) GetDraft(token string) (*models.DraftResponse, error) {
	draft, err := s.draftRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}
	return s.buildDraftResponse(draft), nil
}

// ============================================================================
// PASSENGERS (Phase 2)
// ============================================================================

// AttachPassengers stores the passenger payload on a held draft and
// recomputes its total after credits
func (s *BookingService) AttachPassengers(token string, req *models.AttachPassengersRequest) (*models.DraftResponse, error) {
	draft, err := s.draftRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}

	if draft.Status != models.DraftStatusHeld {
		return nil, models.NewValidationError("draft", "draft is no longer editable")
	}
	if !draft.IsHoldLive() {
		return nil, models.NewValidationError("draft", "seat hold has expired, please reselect")
	}

	if err := req.Validate(draft.SeatCount()); err != nil {
		return nil, err
	}

	phone, err := s.phones.Validate(req.ContactPhone)
	if err != nil {
		return nil, models.NewValidationError("contact_phone", err.Error())
	}

	if req.ReferralCode != nil && *req.ReferralCode != "" {
		if _, err := s.credits.ValidateReferralCode(*req.ReferralCode, draft.UserID); err != nil {
			return nil, err
		}
	}

	gross, err := s.grossAmount(draft)
	if err != nil {
		return nil, err
	}

	creditsApplied := 0.0
	if req.UseCredits > 0 {
		if draft.UserID == nil {
			return nil, models.NewValidationError("use_credits", "sign in to pay with credits")
		}
		creditsApplied = req.UseCredits
		if creditsApplied > gross {
			creditsApplied = gross
		}
	}

	draft.Passengers = req.Passengers
	draft.ContactEmail = &req.ContactEmail
	draft.ContactPhone = &phone
	draft.ReferralCode = req.ReferralCode
	draft.CreditsApplied = creditsApplied
	draft.TotalAmount = gross - creditsApplied

	if err := s.draftRepo.UpdatePassengers(draft); err != nil {
		return nil, err
	}

	return s.buildDraftResponse(draft), nil
}

// ============================================================================
// PAY (Phase 3)
// ============================================================================

// InitiatePayment creates the pending booking rows for a draft and hands the
// purchase to the gateway. Zero-amount purchases (credits covering the full
// fare) skip the gateway entirely but require a signed-in user; they commit
// through the same confirm path with a synthetic zero verification.
func (s *BookingService) InitiatePayment(token string) (*PaymentInitResult, error) {
	draft, err := s.draftRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}

	if draft.Status != models.DraftStatusHeld {
		return nil, models.NewValidationError("draft", "payment already initiated or draft closed")
	}
	if !draft.IsHoldLive() {
		return nil, models.NewValidationError("draft", "seat hold has expired, please reselect")
	}
	if len(draft.Passengers) == 0 || draft.ContactEmail == nil {
		return nil, models.NewValidationError("draft", "passenger details are missing")
	}

	reference := uuid.New().String()

	if err := s.createPendingBookings(draft); err != nil {
		return nil, err
	}

	if draft.TotalAmount <= 0 {
		if draft.UserID == nil {
			return nil, models.NewValidationError("draft", "sign in to complete a fully-credited booking")
		}

		if err := s.draftRepo.MarkPaymentPending(draft.ID, reference, time.Now().Add(s.cfg.HoldTTL)); err != nil {
			return nil, err
		}

		result, err := s.commitDraft(draft, reference, &models.VerifyResult{Success: true, PaidAmount: 0})
		if err != nil {
			return nil, err
		}

		return &PaymentInitResult{Free: true, Reference: reference, PNRs: result.PNRs}, nil
	}

	authURL, err := s.gateway.Initialize(&InitializePaymentParams{
		Email:     *draft.ContactEmail,
		Amount:    draft.TotalAmount,
		Reference: reference,
		Metadata: map[string]interface{}{
			"draft_token": draft.Token,
			"roundtrip":   draft.IsRoundtrip,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.draftRepo.MarkPaymentPending(draft.ID, reference, time.Now().Add(s.cfg.HoldTTL)); err != nil {
		return nil, err
	}

	return &PaymentInitResult{AuthorizationURL: authURL, Reference: reference}, nil
}

// ============================================================================
// CONFIRM (Phase 4)
// ============================================================================

// Confirm verifies a gateway reference and, on success, promotes the draft's
// bookings inside one all-or-nothing transaction. Gateway trouble leaves
// everything pending for a later retry; a seat conflict found by the
// authoritative recheck cancels the purchase.
func (s *BookingService) Confirm(reference string) (*ConfirmResult, error) {
	draft, err := s.draftRepo.GetByPaymentReference(reference)
	if err != nil {
		return nil, err
	}

	// Idempotent: the callback and the webhook both land here
	if draft.Status == models.DraftStatusConfirmed {
		return s.confirmedResult(draft, reference)
	}

	// An expired draft whose payment still settled has captured money with
	// no seats held. Flag it for a manual refund-or-rebook decision instead
	// of pretending the reference is unknown.
	if draft.Status == models.DraftStatusExpired {
		verify, verifyErr := s.gateway.Verify(reference)
		if verifyErr == nil && verify.Success {
			s.logger.WithFields(logrus.Fields{
				"reference": reference,
				"draft":     draft.Token,
				"paid":      verify.PaidAmount,
			}).Error("Payment captured for an expired draft, manual review required")
			return nil, &models.GatewayError{
				Reference: reference,
				Message:   "payment received after the seat hold expired, support will follow up",
			}
		}
		return nil, models.NewValidationError("draft", "purchase is not awaiting confirmation")
	}

	if draft.Status != models.DraftStatusPaymentPending {
		return nil, models.NewValidationError("draft", "purchase is not awaiting confirmation")
	}

	verify, err := s.gateway.Verify(reference)
	if err != nil {
		return nil, err
	}

	if !verify.Success {
		return nil, &models.GatewayError{Reference: reference, Message: "gateway reports the transaction was not successful"}
	}

	// Verify is the source of truth; the local total is a lower bound.
	// Overpayment is accepted and recorded as paid.
	if verify.PaidAmount < draft.TotalAmount {
		s.logger.WithFields(logrus.Fields{
			"reference": reference,
			"expected":  draft.TotalAmount,
			"paid":      verify.PaidAmount,
		}).Error("Underpayment detected, leaving bookings pending")
		return nil, &models.GatewayError{
			Reference: reference,
			Message:   fmt.Sprintf("paid %.2f is below the %.2f due", verify.PaidAmount, draft.TotalAmount),
		}
	}
	if verify.PaidAmount > draft.TotalAmount {
		s.logger.WithFields(logrus.Fields{
			"reference": reference,
			"expected":  draft.TotalAmount,
			"paid":      verify.PaidAmount,
		}).Warn("Overpayment accepted")
	}

	return s.commitDraft(draft, reference, verify)
}

// commitDraft runs the all-or-nothing commit transaction for a verified
// purchase: instance locks, authoritative seat recheck, capacity check,
// booking promotion, payment rows, counters, credit debit and referral award.
func (s *BookingService) commitDraft(draft *models.DraftBooking, reference string, verify *models.VerifyResult) (*ConfirmResult, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the draft before anything else. The callback and the webhook can
	// settle the same reference concurrently; the loser blocks here, then
	// sees the winner's confirmed status and returns the same result.
	lockedDraft, err := s.draftRepo.LockByID(tx, draft.ID)
	if err != nil {
		return nil, err
	}
	if lockedDraft.Status == models.DraftStatusConfirmed {
		tx.Rollback()
		return s.confirmedResult(lockedDraft, reference)
	}
	if lockedDraft.Status != models.DraftStatusPaymentPending {
		return nil, models.NewValidationError("draft", "purchase is not awaiting confirmation")
	}
	draft = lockedDraft

	legs := s.legsFromDraft(draft)
	instances := make(map[string]*models.TripInstance, len(legs))
	for _, l := range legs {
		instance, err := s.instanceRepo.ResolveExt(tx, l.templateID, l.tripDate)
		if err != nil {
			return nil, err
		}
		locked, err := s.instanceRepo.LockForUpdate(tx, instance.ID)
		if err != nil {
			return nil, err
		}
		instances[l.templateID+l.tripDate.Format("2006-01-02")] = locked

		result, err := s.inventory.CheckAvailability(tx, l.templateID, l.tripDate, l.seats, draft.ID)
		if err != nil {
			return nil, err
		}
		if !result.Available {
			tx.Rollback()
			s.abandonDraft(draft)
			return nil, &models.SeatConflictError{
				TemplateID: l.templateID,
				TripDate:   l.tripDate.Format("2006-01-02"),
				Seats:      result.Conflicts,
			}
		}

		if err := s.inventory.CheckCapacity(l.templateID, l.tripDate, locked.BookedSeats, len(l.seats)); err != nil {
			tx.Rollback()
			s.abandonDraft(draft)
			return nil, err
		}
	}

	bookings, err := s.bookingRepo.GetByDraftID(tx, draft.ID)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("no pending bookings for draft %s", draft.Token)
	}

	pnrs := make([]string, 0, len(bookings))
	var method *string
	if verify.Channel != "" {
		method = &verify.Channel
	}
	for i := range bookings {
		b := &bookings[i]
		if err := s.bookingRepo.Confirm(tx, b.ID); err != nil {
			return nil, err
		}
		pnrs = append(pnrs, b.PNR)

		payment := &models.Payment{
			BookingID:      b.ID,
			Amount:         b.TotalAmount,
			TransactionRef: reference,
			PaymentMethod:  method,
			Status:         "success",
		}
		if verify.GatewayRef != "" {
			payment.GatewayRef = &verify.GatewayRef
		}
		if verify.RawBody != "" {
			payment.GatewayResponse = &verify.RawBody
		}
		if err := s.paymentRepo.Create(tx, payment); err != nil {
			return nil, err
		}
	}

	for _, l := range legs {
		instance := instances[l.templateID+l.tripDate.Format("2006-01-02")]
		if err := s.instanceRepo.AddBookedSeats(tx, instance.ID, len(l.seats)); err != nil {
			return nil, err
		}
	}

	if draft.CreditsApplied > 0 {
		if draft.UserID == nil {
			return nil, models.NewValidationError("draft", "credits applied without a signed-in user")
		}
		if err := s.credits.Debit(tx, *draft.UserID, draft.CreditsApplied, &bookings[0].ID); err != nil {
			return nil, err
		}
	}

	if draft.ReferralCode != nil && *draft.ReferralCode != "" {
		if err := s.credits.AwardReferral(tx, *draft.ReferralCode, draft.UserID, bookings[0].ID); err != nil {
			return nil, err
		}
	}

	if err := s.draftRepo.MarkConfirmed(tx, draft.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"reference": reference,
		"pnrs":      pnrs,
		"amount":    verify.PaidAmount,
	}).Info("Booking confirmed")

	// Side effects after the durable commit: ticket artifacts and mail.
	// Failures here are logged, never propagated.
	for _, code := range pnrs {
		if _, err := s.qrWriter.Write(code); err != nil {
			s.logger.WithError(err).WithField("pnr", code).Error("Failed to write QR artifact")
		}
	}
	if draft.ContactEmail != nil {
		view, err := s.bookingRepo.GetViewByPNR(pnrs[0])
		if err != nil {
			view = nil
		}
		if err := s.mailer.SendBookingConfirmation(*draft.ContactEmail, pnrs, view); err != nil {
			s.logger.WithError(err).Error("Failed to queue confirmation email")
		}
	}

	return &ConfirmResult{
		PNRs:       pnrs,
		AmountPaid: verify.PaidAmount,
		Channel:    verify.Channel,
		Reference:  reference,
	}, nil
}

// abandonDraft cancels a draft and its pending bookings after a losing seat
// race. Best effort outside the rolled-back transaction.
func (s *BookingService) abandonDraft(draft *models.DraftBooking) {
	bookings, err := s.bookingRepo.GetByDraftID(s.db, draft.ID)
	if err == nil {
		for _, b := range bookings {
			if b.Status == models.BookingStatusPending {
				if err := s.bookingRepo.CancelBooking(s.db, b.ID); err != nil {
					s.logger.WithError(err).WithField("booking", b.ID).Error("Failed to cancel pending booking")
				}
			}
		}
	}

	if err := s.draftRepo.UpdateStatus(s.db, draft.ID, models.DraftStatusCancelled); err != nil {
		s.logger.WithError(err).WithField("draft", draft.Token).Error("Failed to cancel draft")
	}
}

// ============================================================================
// CANCEL / LOOKUP
// ============================================================================

// Cancel cancels a booking by PNR. Confirmed bookings give their seat back
// by decrementing the instance counter in the same transaction. Only the
// owner or staff may cancel.
func (s *BookingService) Cancel(pnrCode string, requesterID *string, isStaff bool) error {
	booking, err := s.bookingRepo.GetByPNR(pnr.Normalize(pnrCode))
	if err != nil {
		return err
	}

	if !isStaff {
		if requesterID == nil || booking.UserID == nil || *booking.UserID != *requesterID {
			return models.NewValidationError("pnr", "only the booking owner can cancel")
		}
	}

	if !booking.CanBeCancelled() {
		return models.NewValidationError("pnr", "booking cannot be cancelled")
	}

	wasActive := booking.IsActive()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookingRepo.CancelBooking(tx, booking.ID); err != nil {
		return err
	}

	// Only confirmed bookings ever incremented the counter
	if wasActive {
		if err := s.instanceRepo.AddBookedSeats(tx, booking.TripID, -1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancel transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":  booking.PNR,
		"seat": booking.SeatNumber,
	}).Info("Booking cancelled")

	if err := s.mailer.SendCancellationNotice(booking.Email, booking.PNR); err != nil {
		s.logger.WithError(err).Error("Failed to queue cancellation email")
	}

	return nil
}

// Lookup returns the ticket view for a PNR
func (s *BookingService) Lookup(code string) (*models.BookingView, error) {
	normalized := pnr.Normalize(code)
	if !pnr.IsValid(normalized) {
		return nil, models.NewValidationError("pnr", "malformed booking reference")
	}

	return s.bookingRepo.GetViewByPNR(normalized)
}

// TicketQR returns the PNG bytes of a booking's QR artifact
func (s *BookingService) TicketQR(code string) ([]byte, error) {
	view, err := s.Lookup(code)
	if err != nil {
		return nil, err
	}

	return s.qrWriter.Encode(view.PNR)
}

// ============================================================================
// HELPERS
// ============================================================================

// createPendingBookings writes the pending/pending rows for every passenger
// on every leg, each with a fresh unique PNR. The draft row is locked and
// any rows left behind by an earlier failed pay attempt are replaced, so a
// retry never stacks a second set of pending rows for the same seats.
func (s *BookingService) createPendingBookings(draft *models.DraftBooking) error {
	legs := s.legsFromDraft(draft)

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin booking-creation transaction: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.draftRepo.LockByID(tx, draft.ID)
	if err != nil {
		return err
	}
	if locked.Status != models.DraftStatusHeld {
		return models.NewValidationError("draft", "payment already initiated or draft closed")
	}

	if err := s.bookingRepo.DeletePendingByDraftID(tx, draft.ID); err != nil {
		return err
	}

	for _, l := range legs {
		template, err := s.templateRepo.GetByID(l.templateID)
		if err != nil {
			return err
		}
		instance, err := s.instanceRepo.ResolveExt(tx, l.templateID, l.tripDate)
		if err != nil {
			return err
		}

		for i, seat := range l.seats {
			passenger := draft.Passengers[i]
			code, err := s.newPNR()
			if err != nil {
				return err
			}

			email := ""
			if passenger.Email != nil {
				email = *passenger.Email
			} else if draft.ContactEmail != nil {
				email = *draft.ContactEmail
			}
			phone := ""
			if passenger.Phone != nil {
				phone = *passenger.Phone
			} else if draft.ContactPhone != nil {
				phone = *draft.ContactPhone
			}

			booking := &models.Booking{
				PNR:           code,
				DraftID:       &draft.ID,
				UserID:        draft.UserID,
				PassengerName: passenger.Name,
				Email:         email,
				Phone:         phone,
				TemplateID:    l.templateID,
				TripID:        instance.ID,
				TripDate:      l.tripDate,
				SeatNumber:    seat,
				TotalAmount:   template.Price,
				PaymentStatus: models.PaymentStatusPending,
				Status:        models.BookingStatusPending,
				ReferralCode:  draft.ReferralCode,
				IsRoundtrip:   draft.IsRoundtrip,
				RoundtripLeg:  l.which,
			}

			if err := s.bookingRepo.Create(tx, booking); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking-creation transaction: %w", err)
	}

	return nil
}

// newPNR generates a PNR that is not yet assigned, retrying a handful of
// times on the unlikely collision
func (s *BookingService) newPNR() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := pnr.Generate()
		if err != nil {
			return "", err
		}

		exists, err := s.bookingRepo.PNRExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	return "", errors.New("failed to allocate a unique PNR")
}

// grossAmount recomputes the pre-credit total of a draft from current
// template prices
func (s *BookingService) grossAmount(draft *models.DraftBooking) (float64, error) {
	total := 0.0
	for _, l := range s.legsFromDraft(draft) {
		template, err := s.templateRepo.GetByID(l.templateID)
		if err != nil {
			return 0, err
		}
		total += template.Price * float64(len(l.seats))
	}

	return total, nil
}

func (s *BookingService) legsFromRequest(req *models.ReserveDraftRequest) ([]leg, error) {
	tripDate, err := time.Parse("2006-01-02", req.TripDate)
	if err != nil {
		return nil, models.NewValidationError("trip_date", "must be formatted YYYY-MM-DD")
	}

	legs := []leg{{templateID: req.TemplateID, tripDate: tripDate, seats: req.Seats, which: models.LegOutbound}}

	if req.IsRoundtrip {
		returnDate, err := time.Parse("2006-01-02", *req.ReturnTripDate)
		if err != nil {
			return nil, models.NewValidationError("return_trip_date", "must be formatted YYYY-MM-DD")
		}
		if returnDate.Before(tripDate) {
			return nil, models.NewValidationError("return_trip_date", "return leg cannot depart before the outbound leg")
		}
		legs = append(legs, leg{templateID: *req.ReturnTemplateID, tripDate: returnDate, seats: req.ReturnSeats, which: models.LegReturn})
	}

	return legs, nil
}

func (s *BookingService) legsFromDraft(draft *models.DraftBooking) []leg {
	legs := []leg{{templateID: draft.TemplateID, tripDate: draft.TripDate, seats: draft.Seats, which: models.LegOutbound}}
	if draft.IsRoundtrip && draft.ReturnTemplateID != nil && draft.ReturnTripDate != nil {
		legs = append(legs, leg{
			templateID: *draft.ReturnTemplateID,
			tripDate:   *draft.ReturnTripDate,
			seats:      draft.ReturnSeats,
			which:      models.LegReturn,
		})
	}
	return legs
}

// confirmedResult rebuilds the result of an already-confirmed draft so
// repeat verifications stay idempotent
func (s *BookingService) confirmedResult(draft *models.DraftBooking, reference string) (*ConfirmResult, error) {
	bookings, err := s.bookingRepo.GetByDraftID(s.db, draft.ID)
	if err != nil {
		return nil, err
	}

	pnrs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		pnrs = append(pnrs, b.PNR)
	}

	return &ConfirmResult{PNRs: pnrs, AmountPaid: draft.TotalAmount, Reference: reference}, nil
}

func (s *BookingService) buildDraftResponse(draft *models.DraftBooking) *models.DraftResponse {
	resp := &models.DraftResponse{
		Token:       draft.Token,
		Status:      draft.Status,
		TemplateID:  draft.TemplateID,
		TripDate:    draft.TripDate.Format("2006-01-02"),
		Seats:       draft.Seats,
		IsRoundtrip: draft.IsRoundtrip,
		Passengers:  draft.Passengers,
		TotalAmount: draft.TotalAmount,
		HeldUntil:   draft.HeldUntil,
	}
	if draft.IsRoundtrip && draft.ReturnTripDate != nil {
		rd := draft.ReturnTripDate.Format("2006-01-02")
		resp.ReturnDate = &rd
		resp.ReturnSeats = draft.ReturnSeats
	}
	return resp
}
