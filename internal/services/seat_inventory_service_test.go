package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryService(t *testing.T) (*SeatInventoryService, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	db := sqlx.NewDb(rawDB, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	service := NewSeatInventoryService(
		database.NewBookingRepository(db),
		database.NewDraftBookingRepository(db),
		database.NewCatalogRepository(db),
		logger,
	)

	return service, db, mock
}

func TestCheckAvailability(t *testing.T) {
	service, db, mock := newInventoryService(t)
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	t.Run("Conflicts Merge Taken And Held", func(t *testing.T) {
		mock.ExpectQuery(`SELECT seat_number\s+FROM bookings`).
			WithArgs("tmpl-1", tripDate).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("4"))
		mock.ExpectQuery(`FROM draft_bookings`).
			WithArgs("tmpl-1", tripDate, "").
			WillReturnRows(sqlmock.NewRows([]string{"seat"}).AddRow("5"))

		result, err := service.CheckAvailability(db, "tmpl-1", tripDate, []string{"4", "5", "6"}, "")
		require.NoError(t, err)
		assert.False(t, result.Available)
		assert.ElementsMatch(t, []string{"4", "5"}, result.Conflicts)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("All Free", func(t *testing.T) {
		mock.ExpectQuery(`SELECT seat_number\s+FROM bookings`).
			WithArgs("tmpl-1", tripDate).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectQuery(`FROM draft_bookings`).
			WithArgs("tmpl-1", tripDate, "draft-9").
			WillReturnRows(sqlmock.NewRows([]string{"seat"}))

		result, err := service.CheckAvailability(db, "tmpl-1", tripDate, []string{"1", "2"}, "draft-9")
		require.NoError(t, err)
		assert.True(t, result.Available)
		assert.Empty(t, result.Conflicts)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckCapacity(t *testing.T) {
	service, _, mock := newInventoryService(t)
	tripDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	t.Run("Within Capacity", func(t *testing.T) {
		mock.ExpectQuery(`FROM vehicle_types`).
			WithArgs("tmpl-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
				AddRow("vt-1", "Sienna", 7, now))

		err := service.CheckCapacity("tmpl-1", tripDate, 4, 3)
		assert.NoError(t, err)
	})

	t.Run("Exceeds Capacity", func(t *testing.T) {
		mock.ExpectQuery(`FROM vehicle_types`).
			WithArgs("tmpl-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
				AddRow("vt-1", "Sienna", 7, now))

		err := service.CheckCapacity("tmpl-1", tripDate, 5, 3)
		require.Error(t, err)

		var capacity *models.CapacityExceededError
		require.True(t, errors.As(err, &capacity))
		assert.Equal(t, 7, capacity.Capacity)
		assert.Equal(t, 5, capacity.Booked)
	})
}

func TestValidateSeatNumbers(t *testing.T) {
	service, _, mock := newInventoryService(t)
	now := time.Now()

	t.Run("Out Of Range Seat", func(t *testing.T) {
		mock.ExpectQuery(`FROM vehicle_types`).
			WithArgs("tmpl-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
				AddRow("vt-1", "Sienna", 7, now))

		err := service.ValidateSeatNumbers("tmpl-1", []string{"1", "8"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "seat 8")
	})

	t.Run("Valid Labels", func(t *testing.T) {
		mock.ExpectQuery(`FROM vehicle_types`).
			WithArgs("tmpl-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
				AddRow("vt-1", "Sienna", 7, now))

		err := service.ValidateSeatNumbers("tmpl-1", []string{"1", "7"})
		assert.NoError(t, err)
	})
}
