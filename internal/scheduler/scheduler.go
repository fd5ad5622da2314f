// Package scheduler runs the compactor on a fixed interval, the Go
// equivalent of the teacher's background fsync loop pattern
// (internal/wal's prior syncLoop) applied to compaction instead (spec §6:
// "the scheduler calls compact every 60s").
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Compactor is the subset of compactor.Compactor the scheduler needs.
type Compactor interface {
	Compact() error
}

// Scheduler ticks at Interval, calling Compactor.Compact each time,
// until its context is canceled.
type Scheduler struct {
	compactor Compactor
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New returns a Scheduler driving c every interval. A nil logger becomes
// a no-op logger.
func New(c Compactor, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{compactor: c, interval: interval, log: log}
}

// Run blocks, ticking every s.interval and invoking Compact, until ctx
// is canceled. A failed compaction cycle is logged and the loop
// continues — a transient I/O error on one cycle should not end
// background compaction for the life of the process.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.compactor.Compact(); err != nil {
				s.log.Warnw("compaction cycle failed", "error", err)
			}
		}
	}
}
