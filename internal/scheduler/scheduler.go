// Package scheduler runs foliotrack's background jobs (end-of-day
// snapshots, price cache flushes, offsite backups) on cron schedules.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a scheduler with seconds-resolution cron expressions
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule.
// Schedule examples:
//   - "0 45 18 * * *" - 18:45 daily, after market close
//   - "@every 10m"    - every ten minutes
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job, "schedule")
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	return s.run(job, "manual")
}

func (s *Scheduler) run(job Job, trigger string) error {
	log := s.log.With().
		Str("job", job.Name()).
		Str("trigger", trigger).
		Logger()

	start := time.Now()
	log.Debug().Msg("Job starting")

	if err := job.Run(); err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("Job failed")
		return err
	}

	log.Debug().Dur("took", time.Since(start)).Msg("Job finished")
	return nil
}
