package rag

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs a reindex job on a cron schedule, for long-lived sessions
// where the documentation corpus drifts.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewScheduler creates a scheduler invoking job per the cron spec.
func NewScheduler(spec string, job func(), logger zerolog.Logger) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid reindex schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins executing the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Reindex scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Reindex scheduler stopped")
}
