package services

import (
	"testing"
	"time"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestExpandTemplate(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	service := NewInstanceGeneratorService(nil, nil, logger)

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // Monday
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("Daily", func(t *testing.T) {
		template := &models.TripTemplate{StartDate: start, EndDate: end, RecurUnit: models.RecurDaily}

		dates := service.ExpandTemplate(template,
			time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC))

		assert.Len(t, dates, 7)
	})

	t.Run("Weekly Picks Listed Days", func(t *testing.T) {
		template := &models.TripTemplate{
			StartDate: start, EndDate: end,
			RecurUnit: models.RecurWeekly,
			RecurDays: pq.StringArray{"Monday", "Friday"},
		}

		// 2026-06-01 is a Monday
		dates := service.ExpandTemplate(template,
			time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC))

		assert.Len(t, dates, 4)
		for _, d := range dates {
			day := d.Weekday()
			assert.True(t, day == time.Monday || day == time.Friday, d.String())
		}
	})

	t.Run("Clipped To Template Window", func(t *testing.T) {
		template := &models.TripTemplate{
			StartDate: start,
			EndDate:   time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC),
			RecurUnit: models.RecurDaily,
		}

		dates := service.ExpandTemplate(template,
			time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))

		assert.Len(t, dates, 3)
	})

	t.Run("Monthly", func(t *testing.T) {
		template := &models.TripTemplate{StartDate: start, EndDate: end, RecurUnit: models.RecurMonthly}

		dates := service.ExpandTemplate(template,
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))

		// The 5th of February, March and April
		assert.Len(t, dates, 3)
		for _, d := range dates {
			assert.Equal(t, 5, d.Day())
		}
	})
}
