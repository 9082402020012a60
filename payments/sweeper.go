package payments

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper expires stale payments on a fixed interval until its context ends.
type Sweeper struct {
	processor *Processor
	interval  time.Duration
	logger    *zap.Logger
}

func NewSweeper(processor *Processor, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{processor: processor, interval: interval, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("payment sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("payment sweeper stopped")
			return
		case now := <-ticker.C:
			if _, err := s.processor.ExpireStale(ctx, now); err != nil && ctx.Err() == nil {
				s.logger.Error("payment sweep failed", zap.Error(err))
			}
		}
	}
}
