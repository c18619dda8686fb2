package services

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService owns the recurring maintenance jobs: nightly trip-instance
// pre-creation and the minutely draft-hold sweep
type CronService struct {
	cron      *cron.Cron
	generator *InstanceGeneratorService
	sweeper   *DraftExpirationService
	days      int
	logger    *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	generator *InstanceGeneratorService,
	sweeper *DraftExpirationService,
	precreateDays int,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:      cron.New(),
		generator: generator,
		sweeper:   sweeper,
		days:      precreateDays,
		logger:    logger,
	}
}

// Start registers and starts the jobs. Pre-creation also runs once
// immediately so a fresh deployment has its window populated.
func (s *CronService) Start() error {
	// Nightly at 02:30, after the day's traffic dies down
	if _, err := s.cron.AddFunc("30 2 * * *", func() {
		if _, err := s.generator.PrecreateWindow(s.days); err != nil {
			s.logger.WithError(err).Error("Scheduled instance pre-creation failed")
		}
	}); err != nil {
		return err
	}

	// Every minute: release lapsed seat holds
	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.sweeper.SweepOnce()
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Cron jobs started")

	go func() {
		if _, err := s.generator.PrecreateWindow(s.days); err != nil {
			s.logger.WithError(err).Error("Initial instance pre-creation failed")
		}
	}()

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron jobs stopped")
}
