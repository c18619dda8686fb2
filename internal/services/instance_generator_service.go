package services

import (
	"time"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// InstanceGeneratorService materializes trip instances from template
// recurrence rules. Instances are normally created lazily on first booking
// contact; the generator pre-creates a rolling window ahead of time so search
// and seat maps never pay the upsert.
type InstanceGeneratorService struct {
	templateRepo *database.TripTemplateRepository
	instanceRepo *database.TripInstanceRepository
	logger       *logrus.Logger
}

// NewInstanceGeneratorService creates a new InstanceGeneratorService
func NewInstanceGeneratorService(
	templateRepo *database.TripTemplateRepository,
	instanceRepo *database.TripInstanceRepository,
	logger *logrus.Logger,
) *InstanceGeneratorService {
	return &InstanceGeneratorService{
		templateRepo: templateRepo,
		instanceRepo: instanceRepo,
		logger:       logger,
	}
}

// ExpandTemplate lists the departure dates of a template in [from, to],
// inclusive, per its recurrence rule
func (s *InstanceGeneratorService) ExpandTemplate(template *models.TripTemplate, from, to time.Time) []time.Time {
	var dates []time.Time
	for d := dateOnly(from); !d.After(dateOnly(to)); d = d.AddDate(0, 0, 1) {
		if template.RunsOn(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// PrecreateWindow upserts instances for every active template over the next
// `days` days. Idempotent: dates that already have an instance are skipped by
// the upsert's conflict clause. Returns how many instances were touched.
func (s *InstanceGeneratorService) PrecreateWindow(days int) (int, error) {
	templates, err := s.templateRepo.GetAllActive()
	if err != nil {
		return 0, err
	}

	from := time.Now()
	to := from.AddDate(0, 0, days)

	created := 0
	for i := range templates {
		template := &templates[i]
		for _, date := range s.ExpandTemplate(template, from, to) {
			if _, err := s.instanceRepo.Resolve(template.ID, date); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"template":  template.ID,
					"trip_date": date.Format("2006-01-02"),
				}).Error("Failed to pre-create trip instance")
				continue
			}
			created++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"templates": len(templates),
		"days":      days,
		"instances": created,
	}).Info("Trip instance pre-creation completed")

	return created, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
