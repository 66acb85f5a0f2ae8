package ingest

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the ingestion pipeline on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *Pipeline
	log      zerolog.Logger
}

// NewScheduler creates a scheduler around the pipeline. Cron specs include
// a seconds field, e.g. "0 0 18 * * 1-5" for 18:00 on weekdays.
func NewScheduler(pipeline *Pipeline, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pipeline: pipeline,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the refresh job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.pipeline.Refresh(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("registering refresh job %q: %w", spec, err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", spec).Msg("refresh scheduler started")
	return nil
}

// Stop stops the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info().Msg("refresh scheduler stopped")
}
