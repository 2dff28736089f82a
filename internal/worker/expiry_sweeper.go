package worker

import (
	"context"
	"time"

	"go-gin-supper-club/internal/service"
	"go-gin-supper-club/pkg/logger"

	"go.uber.org/zap"
)

// ExpirySweeper expires overdue offers on a fixed interval. Expiry is decided
// by the stored offer deadline, so a late tick still expires retroactively.
type ExpirySweeper struct {
	waitlist service.WaitlistService
	interval time.Duration
}

func NewExpirySweeper(waitlist service.WaitlistService, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		waitlist: waitlist,
		interval: interval,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *ExpirySweeper) SweepOnce(ctx context.Context) {
	expired, err := s.waitlist.Sweep(ctx)
	log := logger.WithComponent("sweeper")
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("sweep failed", zap.Int("expired", expired), zap.Error(err))
		return
	}
	if expired > 0 {
		log.Info("expired waitlist offers", zap.Int("expired", expired))
	}
}
