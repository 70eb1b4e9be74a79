package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Sweeper periodically deletes settlement records whose retention horizon
// has passed. One sweeper runs per process.
type Sweeper struct {
	settlements Settlements
	clock       quartz.Clock
	interval    time.Duration
	logger      *log.Logger
}

// NewSweeper creates a retention sweeper ticking at interval.
func NewSweeper(settlements Settlements, clock quartz.Clock, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{
		settlements: settlements,
		clock:       clock,
		interval:    interval,
		logger:      logger.WithPrefix("sweeper"),
	}
}

// Run sweeps until ctx is cancelled. A failed sweep is logged and retried on
// the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	waiter := s.clock.TickerFunc(ctx, s.interval, func() error {
		deleted, err := s.settlements.DeleteExpired(ctx, s.clock.Now())
		if err != nil {
			s.logger.Error("Retention sweep failed", "error", err)
			return nil
		}
		if deleted > 0 {
			s.logger.Info("Swept expired settlement records", "deleted", deleted)
		}
		return nil
	}, "retention-sweep")

	err := waiter.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
