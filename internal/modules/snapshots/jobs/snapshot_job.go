// Package jobs provides the scheduled snapshot job.
package jobs

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
)

// Publisher pushes events to live stream subscribers
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// SnapshotJob computes and stores the end-of-day snapshots for every
// view and account
type SnapshotJob struct {
	service *snapshots.Service
	stream  Publisher
	log     zerolog.Logger
}

// NewSnapshotJob creates the end-of-day snapshot job
func NewSnapshotJob(service *snapshots.Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		service: service,
		log:     log.With().Str("job", "eod_snapshot").Logger(),
	}
}

// SetPublisher wires the live stream, once it exists. Optional.
func (j *SnapshotJob) SetPublisher(stream Publisher) {
	j.stream = stream
}

// Name implements scheduler.Job
func (j *SnapshotJob) Name() string {
	return "eod_snapshot"
}

// Run implements scheduler.Job
func (j *SnapshotJob) Run() error {
	start := time.Now()
	res, err := j.service.ComputeAndStore(start)
	if err != nil {
		j.log.Error().Err(err).Msg("Snapshot job failed")
		return err
	}

	if j.stream != nil {
		j.stream.Publish("snapshot_complete", res)
	}

	j.log.Info().
		Int("views", res.Views).
		Int("accounts", res.Accounts).
		Dur("took", time.Since(start)).
		Msg("Snapshot job finished")
	return nil
}
