package marketdata

import (
	"github.com/rs/zerolog"
)

// FlushJob periodically persists the in-memory price cache to disk so a
// restart picks up near-current prices
type FlushJob struct {
	cache *Cache
	log   zerolog.Logger
}

// NewFlushJob creates the price cache flush job
func NewFlushJob(cache *Cache, log zerolog.Logger) *FlushJob {
	return &FlushJob{
		cache: cache,
		log:   log.With().Str("job", "price_flush").Logger(),
	}
}

// Name implements scheduler.Job
func (j *FlushJob) Name() string {
	return "price_flush"
}

// Run implements scheduler.Job
func (j *FlushJob) Run() error {
	if err := j.cache.Flush(); err != nil {
		j.log.Error().Err(err).Msg("Price cache flush failed")
		return err
	}
	return nil
}
