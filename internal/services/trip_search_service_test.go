package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchService(t *testing.T) (*TripSearchService, sqlmock.Sqlmock) {
	t.Helper()

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	db := sqlx.NewDb(rawDB, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewTripSearchService(
		database.NewTripTemplateRepository(db),
		database.NewCatalogRepository(db),
		logger,
	), mock
}

func TestSearchFiltersByRecurrence(t *testing.T) {
	service, mock := newSearchService(t)

	// 2099-06-01 is a Monday; tmpl-mon runs weekly on Mondays, tmpl-tue on
	// Tuesdays. Both are on the route, only one departs that day.
	date := time.Date(2099, 6, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, date.Weekday())

	searchColumns := []string{
		"template_id", "pickup_city", "dropoff_city", "vehicle_type", "capacity",
		"departure_time", "price", "seats_left", "review_count", "average_rating",
	}
	mock.ExpectQuery(`FROM trip_templates t`).
		WithArgs("city-enu", "city-lag", date).
		WillReturnRows(sqlmock.NewRows(searchColumns).
			AddRow("tmpl-mon", "Enugu", "Lagos", "Sienna", 7, "07:00", 5000.0, 5, 12, 4.5).
			AddRow("tmpl-tue", "Enugu", "Lagos", "Bus", 14, "09:00", 3500.0, 14, 0, 0.0))

	templateColumns := []string{
		"id", "pickup_city_id", "dropoff_city_id", "vehicle_type_id", "vehicle_id",
		"time_slot_id", "price", "start_date", "end_date", "recur_unit", "recur_days",
		"status", "created_at", "updated_at",
	}
	start := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(`FROM trip_templates\s+WHERE status`).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows(templateColumns).
			AddRow("tmpl-mon", "city-enu", "city-lag", "vt-1", nil, "ts-1", 5000.0, start, end, "week", []byte(`{Monday}`), "active", now, now).
			AddRow("tmpl-tue", "city-enu", "city-lag", "vt-2", nil, "ts-2", 3500.0, start, end, "week", []byte(`{Tuesday}`), "active", now, now))

	response, err := service.Search("city-enu", "city-lag", "2099-06-01")
	require.NoError(t, err)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "tmpl-mon", response.Results[0].TemplateID)
	assert.Equal(t, 5, response.Results[0].SeatsLeft)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRejectsBadInput(t *testing.T) {
	service, _ := newSearchService(t)

	t.Run("Same City Pair", func(t *testing.T) {
		_, err := service.Search("city-1", "city-1", "2099-06-01")
		assert.Error(t, err)
	})

	t.Run("Missing City", func(t *testing.T) {
		_, err := service.Search("", "city-2", "2099-06-01")
		assert.Error(t, err)
	})

	t.Run("Malformed Date", func(t *testing.T) {
		_, err := service.Search("city-1", "city-2", "01-06-2099")
		assert.Error(t, err)
	})

	t.Run("Past Date", func(t *testing.T) {
		_, err := service.Search("city-1", "city-2", "2001-01-01")
		assert.Error(t, err)
	})
}
