package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob runs the offsite backup and rotation on a schedule
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name implements scheduler.Job
func (j *BackupJob) Name() string {
	return "backup"
}

// Run implements scheduler.Job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUpload(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}
	if err := j.service.RotateOldBackups(ctx); err != nil {
		// Rotation failure never undoes a successful backup
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
