package scheduler

import (
	"context"
	"time"

	"github.com/burnbook/burnbook/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service periodically recomputes the sentiment summary so the aggregate
// converges even when a best-effort post-job refresh was missed.
type Service struct {
	store    store.Store
	schedule string
	cron     *cron.Cron
}

// NewService creates a scheduler with a cron expression (seconds field
// included).
func NewService(st store.Store, schedule string) *Service {
	return &Service{
		store:    st,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled summary refresh
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := s.store.RefreshSummary(ctx); err != nil {
			logrus.Errorf("Scheduled summary refresh failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with summary refresh schedule %q", s.schedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
