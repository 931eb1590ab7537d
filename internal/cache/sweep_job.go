package cache

import (
	"github.com/rs/zerolog"
)

// SweepJob removes expired entries from the registered caches.
// It should be scheduled to run every few minutes.
type SweepJob struct {
	caches map[string]*Cache
	log    zerolog.Logger
}

// NewSweepJob creates a sweep job over the given named caches.
func NewSweepJob(caches map[string]*Cache, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		caches: caches,
		log:    log.With().Str("job", "cache_sweep").Logger(),
	}
}

// Run executes the sweep, removing expired entries from every cache.
func (j *SweepJob) Run() error {
	total := 0
	for name, c := range j.caches {
		removed := c.Sweep()
		if removed > 0 {
			j.log.Info().
				Str("cache", name).
				Int("removed", removed).
				Msg("Swept expired cache entries")
			total += removed
		}
	}

	if total > 0 {
		j.log.Info().
			Int("total_removed", total).
			Msg("Cache sweep completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SweepJob) Name() string {
	return "cache_sweep"
}
