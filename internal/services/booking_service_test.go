package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgctransports/booking-backend/internal/config"
	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/dgctransports/booking-backend/pkg/qr"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway substitutes the payment gateway in tests
type stubGateway struct {
	initURL      string
	initErr      error
	verifyResult *models.VerifyResult
	verifyErr    error
	verifyCalls  int
}

func (g *stubGateway) Initialize(params *InitializePaymentParams) (string, error) {
	if g.initErr != nil {
		return "", g.initErr
	}
	return g.initURL, nil
}

func (g *stubGateway) Verify(reference string) (*models.VerifyResult, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResult, nil
}

var draftTestColumns = []string{
	"id", "token", "user_id", "status", "template_id", "trip_date", "seats",
	"is_roundtrip", "return_template_id", "return_trip_date", "return_seats",
	"passengers", "contact_email", "contact_phone", "referral_code",
	"credits_applied", "total_amount", "payment_reference", "held_until",
	"created_at", "updated_at",
}

var bookingTestColumns = []string{
	"id", "pnr", "draft_id", "user_id", "passenger_name", "email", "phone",
	"template_id", "trip_id", "trip_date", "seat_number", "total_amount",
	"payment_status", "status", "referral_code", "is_roundtrip", "roundtrip_leg",
	"cancelled_at", "created_at", "updated_at",
}

func newBookingService(t *testing.T, gateway PaymentGateway) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	db := sqlx.NewDb(rawDB, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	bookingRepo := database.NewBookingRepository(db)
	draftRepo := database.NewDraftBookingRepository(db)
	catalogRepo := database.NewCatalogRepository(db)

	qrWriter, err := qr.NewWriter(t.TempDir())
	require.NoError(t, err)

	service := NewBookingService(
		db,
		database.NewTripTemplateRepository(db),
		database.NewTripInstanceRepository(db),
		bookingRepo,
		draftRepo,
		database.NewPaymentRepository(db),
		NewSeatInventoryService(bookingRepo, draftRepo, catalogRepo, logger),
		NewCreditService(database.NewUserRepository(db), true, logger),
		gateway,
		NewLogMailer(logger),
		qrWriter,
		config.BookingConfig{
			HoldTTL:          15 * time.Minute,
			MaxSeatsPerDraft: 10,
			PrecreateDays:    30,
		},
		logger,
	)

	return service, mock
}

// expectDraftByReference queues the payment_pending draft row the commit
// path starts from
func expectDraftByReference(mock sqlmock.Sqlmock, reference string, total float64) {
	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM draft_bookings WHERE payment_reference`).
		WithArgs(reference).
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "payment_pending", "tmpl-1", tripDate, []byte(`{4,5}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"},{"name":"Grace"}]`), "ada@example.com", "08012345678", nil,
			0.0, total, reference, now.Add(10*time.Minute),
			now, now,
		))
}

func TestConfirmUnderpaymentLeavesPending(t *testing.T) {
	gateway := &stubGateway{verifyResult: &models.VerifyResult{Success: true, PaidAmount: 4000}}
	service, mock := newBookingService(t, gateway)

	expectDraftByReference(mock, "ref-1", 5000)

	_, err := service.Confirm("ref-1")
	require.Error(t, err)

	var gwErr *models.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Contains(t, gwErr.Message, "below")

	// No transaction was opened: the bookings stay pending for a retry
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, gateway.verifyCalls)
}

func TestConfirmGatewayUnavailableLeavesPending(t *testing.T) {
	gateway := &stubGateway{verifyErr: &models.GatewayError{Unavailable: true, Reference: "ref-2", Message: "timeout"}}
	service, mock := newBookingService(t, gateway)

	expectDraftByReference(mock, "ref-2", 5000)

	_, err := service.Confirm("ref-2")
	require.Error(t, err)

	var gwErr *models.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.True(t, gwErr.Unavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmIsIdempotent(t *testing.T) {
	gateway := &stubGateway{}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM draft_bookings WHERE payment_reference`).
		WithArgs("ref-3").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "confirmed", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-3", now,
			now, now,
		))
	mock.ExpectQuery(`FROM bookings WHERE draft_id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns).AddRow(
			"bk-1", "DGCABC234", "draft-1", nil, "Ada", "ada@example.com", "08012345678",
			"tmpl-1", "inst-1", tripDate, "4", 5000.0,
			"paid", "confirmed", nil, false, "outbound",
			nil, now, now,
		))

	result, err := service.Confirm("ref-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"DGCABC234"}, result.PNRs)

	// The gateway is never asked twice about a settled purchase
	assert.Equal(t, 0, gateway.verifyCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmCommitsVerifiedPurchase(t *testing.T) {
	gateway := &stubGateway{verifyResult: &models.VerifyResult{
		Success:    true,
		PaidAmount: 5000,
		GatewayRef: "987",
		Channel:    "card",
	}}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM draft_bookings WHERE payment_reference`).
		WithArgs("ref-4").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "payment_pending", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-4", now.Add(10*time.Minute),
			now, now,
		))

	mock.ExpectBegin()

	// Draft re-read under lock inside the transaction
	mock.ExpectQuery(`FROM draft_bookings\s+WHERE id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "payment_pending", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-4", now.Add(10*time.Minute),
			now, now,
		))

	// Instance resolution and row lock
	mock.ExpectExec(`INSERT INTO trip_instances`).
		WithArgs(sqlmock.AnyArg(), "tmpl-1", tripDate).
		WillReturnResult(sqlmock.NewResult(0, 0))
	instanceColumns := []string{"id", "template_id", "trip_date", "booked_seats", "status", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM trip_instances\s+WHERE template_id`).
		WithArgs("tmpl-1", tripDate).
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-1", "tmpl-1", tripDate, 3, "scheduled", now, now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-1", "tmpl-1", tripDate, 3, "scheduled", now, now))

	// Authoritative availability: nothing taken, nothing held
	mock.ExpectQuery(`SELECT seat_number\s+FROM bookings`).
		WithArgs("tmpl-1", tripDate).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectQuery(`FROM draft_bookings`).
		WithArgs("tmpl-1", tripDate, "draft-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat"}))

	// Capacity check
	mock.ExpectQuery(`FROM vehicle_types`).
		WithArgs("tmpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
			AddRow("vt-1", "Sienna", 7, now))

	// Pending booking promotion plus payment row
	mock.ExpectQuery(`FROM bookings WHERE draft_id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns).AddRow(
			"bk-1", "DGCABC234", "draft-1", nil, "Ada", "ada@example.com", "08012345678",
			"tmpl-1", "inst-1", tripDate, "4", 5000.0,
			"pending", "pending", nil, false, "outbound",
			nil, now, now,
		))
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("bk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs(sqlmock.AnyArg(), "bk-1", 5000.0, "ref-4", "987", "card", "success", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	// Seat counter and draft closure
	mock.ExpectExec(`UPDATE trip_instances`).
		WithArgs("inst-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE draft_bookings`).
		WithArgs("draft-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	// Post-commit ticket view for the confirmation email
	mock.ExpectQuery(`FROM bookings b`).
		WithArgs("DGCABC234").
		WillReturnRows(sqlmock.NewRows([]string{
			"pnr", "passenger_name", "email", "phone", "pickup_city", "dropoff_city",
			"departure_time", "trip_date", "seat_number", "total_amount",
			"payment_status", "status", "is_roundtrip", "roundtrip_leg", "created_at",
		}).AddRow(
			"DGCABC234", "Ada", "ada@example.com", "08012345678", "Enugu", "Lagos",
			"07:00", tripDate, "4", 5000.0,
			"paid", "confirmed", false, "outbound", now,
		))

	result, err := service.Confirm("ref-4")
	require.NoError(t, err)
	assert.Equal(t, []string{"DGCABC234"}, result.PNRs)
	assert.Equal(t, 5000.0, result.AmountPaid)
	assert.Equal(t, "card", result.Channel)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSeatRaceCancelsPurchase(t *testing.T) {
	gateway := &stubGateway{verifyResult: &models.VerifyResult{Success: true, PaidAmount: 5000}}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM draft_bookings WHERE payment_reference`).
		WithArgs("ref-5").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "payment_pending", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-5", now.Add(10*time.Minute),
			now, now,
		))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM draft_bookings\s+WHERE id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "payment_pending", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-5", now.Add(10*time.Minute),
			now, now,
		))
	mock.ExpectExec(`INSERT INTO trip_instances`).
		WithArgs(sqlmock.AnyArg(), "tmpl-1", tripDate).
		WillReturnResult(sqlmock.NewResult(0, 0))
	instanceColumns := []string{"id", "template_id", "trip_date", "booked_seats", "status", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM trip_instances\s+WHERE template_id`).
		WithArgs("tmpl-1", tripDate).
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-1", "tmpl-1", tripDate, 3, "scheduled", now, now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-1", "tmpl-1", tripDate, 3, "scheduled", now, now))

	// Seat 4 was sold to someone else while this user was paying
	mock.ExpectQuery(`SELECT seat_number\s+FROM bookings`).
		WithArgs("tmpl-1", tripDate).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("4"))
	mock.ExpectQuery(`FROM draft_bookings`).
		WithArgs("tmpl-1", tripDate, "draft-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat"}))

	mock.ExpectRollback()

	// The losing purchase is abandoned: pending bookings cancelled, draft
	// closed
	mock.ExpectQuery(`FROM bookings WHERE draft_id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns).AddRow(
			"bk-1", "DGCABC234", "draft-1", nil, "Ada", "ada@example.com", "08012345678",
			"tmpl-1", "inst-1", tripDate, "4", 5000.0,
			"pending", "pending", nil, false, "outbound",
			nil, now, now,
		))
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("bk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE draft_bookings`).
		WithArgs("draft-1", "cancelled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := service.Confirm("ref-5")
	require.Error(t, err)

	var conflict *models.SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"4"}, conflict.Seats)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmConcurrentSettleReturnsExistingResult(t *testing.T) {
	gateway := &stubGateway{verifyResult: &models.VerifyResult{Success: true, PaidAmount: 5000}}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	// The pre-verify read still sees payment_pending
	expectDraftByReference(mock, "ref-7", 5000)

	// By the time this settle attempt takes the row lock, a concurrent
	// webhook has already committed the purchase
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM draft_bookings\s+WHERE id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "confirmed", "tmpl-1", tripDate, []byte(`{4,5}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"},{"name":"Grace"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-7", now.Add(10*time.Minute),
			now, now,
		))
	mock.ExpectRollback()

	mock.ExpectQuery(`FROM bookings WHERE draft_id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns).
			AddRow(
				"bk-1", "DGCABC234", "draft-1", nil, "Ada", "ada@example.com", "08012345678",
				"tmpl-1", "inst-1", tripDate, "4", 2500.0,
				"paid", "confirmed", nil, false, "outbound",
				nil, now, now,
			).
			AddRow(
				"bk-2", "DGCXYZ789", "draft-1", nil, "Grace", "ada@example.com", "08012345678",
				"tmpl-1", "inst-1", tripDate, "5", 2500.0,
				"paid", "confirmed", nil, false, "outbound",
				nil, now, now,
			))

	result, err := service.Confirm("ref-7")
	require.NoError(t, err)
	assert.Equal(t, []string{"DGCABC234", "DGCXYZ789"}, result.PNRs)

	// The loser never re-promotes bookings or writes payment rows
	assert.Equal(t, 1, gateway.verifyCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var templateTestColumns = []string{
	"id", "pickup_city_id", "dropoff_city_id", "vehicle_type_id", "vehicle_id",
	"time_slot_id", "price", "start_date", "end_date", "recur_unit", "recur_days",
	"status", "created_at", "updated_at",
}

// expectPendingBookingCreation queues the full booking-creation transaction
// for a one-seat held draft: lock, replacement delete, and the insert
func expectPendingBookingCreation(mock sqlmock.Sqlmock, tripDate time.Time, deleted int64) {
	now := time.Now()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM draft_bookings\s+WHERE id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "held", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, nil, now.Add(10*time.Minute),
			now, now,
		))
	mock.ExpectExec(`DELETE FROM bookings`).
		WithArgs("draft-1").
		WillReturnResult(sqlmock.NewResult(0, deleted))
	mock.ExpectQuery(`FROM trip_templates WHERE id`).
		WithArgs("tmpl-1").
		WillReturnRows(sqlmock.NewRows(templateTestColumns).AddRow(
			"tmpl-1", "city-enu", "city-lag", "vt-1", nil, "ts-1", 5000.0,
			start, end, "day", []byte(`{}`), "active", now, now,
		))
	mock.ExpectExec(`INSERT INTO trip_instances`).
		WithArgs(sqlmock.AnyArg(), "tmpl-1", tripDate).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM trip_instances\s+WHERE template_id`).
		WithArgs("tmpl-1", tripDate).
		WillReturnRows(sqlmock.NewRows([]string{"id", "template_id", "trip_date", "booked_seats", "status", "created_at", "updated_at"}).
			AddRow("inst-1", "tmpl-1", tripDate, 0, "scheduled", now, now))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()
}

func TestPayRetryReplacesPendingBookings(t *testing.T) {
	gateway := &stubGateway{initErr: &models.GatewayError{Unavailable: true, Message: "timeout"}}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	heldDraftRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "held", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, nil, now.Add(10*time.Minute),
			now, now,
		)
	}

	// First attempt: bookings are created, then the gateway is down
	mock.ExpectQuery(`FROM draft_bookings WHERE token`).
		WithArgs("tok-1").
		WillReturnRows(heldDraftRow())
	expectPendingBookingCreation(mock, tripDate, 0)

	_, err := service.InitiatePayment("tok-1")
	require.Error(t, err)
	var gwErr *models.GatewayError
	require.True(t, errors.As(err, &gwErr))

	// Retry: the stale pending rows are replaced, never stacked, so the
	// eventual confirm promotes exactly one booking per seat
	gateway.initErr = nil
	gateway.initURL = "https://checkout.example.com/abc"

	mock.ExpectQuery(`FROM draft_bookings WHERE token`).
		WithArgs("tok-1").
		WillReturnRows(heldDraftRow())
	expectPendingBookingCreation(mock, tripDate, 1)
	mock.ExpectExec(`UPDATE draft_bookings`).
		WithArgs("draft-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.InitiatePayment("tok-1")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/abc", result.AuthorizationURL)
	assert.False(t, result.Free)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmRoundTripAbortsWhenReturnLegTaken(t *testing.T) {
	gateway := &stubGateway{verifyResult: &models.VerifyResult{Success: true, PaidAmount: 10000}}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	outDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	retDate := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	instanceColumns := []string{"id", "template_id", "trip_date", "booked_seats", "status", "created_at", "updated_at"}

	roundtripRow := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, status, "tmpl-1", outDate, []byte(`{4}`),
			true, "tmpl-2", retDate, []byte(`{4}`),
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 10000.0, "ref-8", now.Add(10*time.Minute),
			now, now,
		)
	}

	mock.ExpectQuery(`FROM draft_bookings WHERE payment_reference`).
		WithArgs("ref-8").
		WillReturnRows(roundtripRow("payment_pending"))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM draft_bookings\s+WHERE id`).
		WithArgs("draft-1").
		WillReturnRows(roundtripRow("payment_pending"))

	// Outbound leg passes every check
	mock.ExpectExec(`INSERT INTO trip_instances`).
		WithArgs(sqlmock.AnyArg(), "tmpl-1", outDate).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM trip_instances\s+WHERE template_id`).
		WithArgs("tmpl-1", outDate).
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-1", "tmpl-1", outDate, 0, "scheduled", now, now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-1", "tmpl-1", outDate, 0, "scheduled", now, now))
	mock.ExpectQuery(`SELECT seat_number\s+FROM bookings`).
		WithArgs("tmpl-1", outDate).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectQuery(`FROM draft_bookings`).
		WithArgs("tmpl-1", outDate, "draft-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat"}))
	mock.ExpectQuery(`FROM vehicle_types`).
		WithArgs("tmpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
			AddRow("vt-1", "Sienna", 7, now))

	// Return leg: seat 4 already sold, the whole purchase must abort
	mock.ExpectExec(`INSERT INTO trip_instances`).
		WithArgs(sqlmock.AnyArg(), "tmpl-2", retDate).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM trip_instances\s+WHERE template_id`).
		WithArgs("tmpl-2", retDate).
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-2", "tmpl-2", retDate, 0, "scheduled", now, now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("inst-2").
		WillReturnRows(sqlmock.NewRows(instanceColumns).
			AddRow("inst-2", "tmpl-2", retDate, 0, "scheduled", now, now))
	mock.ExpectQuery(`SELECT seat_number\s+FROM bookings`).
		WithArgs("tmpl-2", retDate).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("4"))
	mock.ExpectQuery(`FROM draft_bookings`).
		WithArgs("tmpl-2", retDate, "draft-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat"}))

	mock.ExpectRollback()

	// Neither leg survives: both pending rows are cancelled with the draft
	mock.ExpectQuery(`FROM bookings WHERE draft_id`).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns).
			AddRow(
				"bk-1", "DGCABC234", "draft-1", nil, "Ada", "ada@example.com", "08012345678",
				"tmpl-1", "inst-1", outDate, "4", 5000.0,
				"pending", "pending", nil, true, "outbound",
				nil, now, now,
			).
			AddRow(
				"bk-2", "DGCXYZ789", "draft-1", nil, "Ada", "ada@example.com", "08012345678",
				"tmpl-2", "inst-2", retDate, "4", 5000.0,
				"pending", "pending", nil, true, "return",
				nil, now, now,
			))
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("bk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("bk-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE draft_bookings`).
		WithArgs("draft-1", "cancelled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := service.Confirm("ref-8")
	require.Error(t, err)

	var conflict *models.SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "tmpl-2", conflict.TemplateID)
	assert.Equal(t, "2026-09-20", conflict.TripDate)
	assert.Equal(t, []string{"4"}, conflict.Seats)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmExpiredDraftFlagsCapturedPayment(t *testing.T) {
	gateway := &stubGateway{verifyResult: &models.VerifyResult{Success: true, PaidAmount: 5000}}
	service, mock := newBookingService(t, gateway)

	now := time.Now()
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM draft_bookings WHERE payment_reference`).
		WithArgs("ref-9").
		WillReturnRows(sqlmock.NewRows(draftTestColumns).AddRow(
			"draft-1", "tok-1", nil, "expired", "tmpl-1", tripDate, []byte(`{4}`),
			false, nil, nil, nil,
			[]byte(`[{"name":"Ada"}]`), "ada@example.com", "08012345678", nil,
			0.0, 5000.0, "ref-9", now.Add(-time.Hour),
			now, now,
		))

	_, err := service.Confirm("ref-9")
	require.Error(t, err)

	// The captured payment is flagged for support, not silently swallowed
	// as an unknown reference
	var gwErr *models.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Contains(t, gwErr.Message, "expired")

	assert.Equal(t, 1, gateway.verifyCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
