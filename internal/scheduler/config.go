package scheduler

import (
	"github.com/smallbiznis/followup/internal/config"
)

// options returns the current scheduler options, filling any zero field
// from the defaults so a partial reload never stalls the loop.
func (s *Scheduler) options() config.SchedulerOptions {
	defaults := config.DefaultSchedulerOptions()
	if s.holder == nil {
		return defaults
	}
	opts := s.holder.Get()
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaults.TickInterval
	}
	if opts.WorkerConcurrency <= 0 {
		opts.WorkerConcurrency = defaults.WorkerConcurrency
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaults.CallTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.MaxBatchesPerTick <= 0 {
		opts.MaxBatchesPerTick = defaults.MaxBatchesPerTick
	}
	return opts
}
