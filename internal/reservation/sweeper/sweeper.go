package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/posware/stock-ledger-service/internal/pkg/logger"
	"github.com/posware/stock-ledger-service/internal/reservation"
)

// Sweeper periodically finalizes overdue pending reservations. It is a plain
// polling loop; every step inside ExpireDue is status-guarded, so running
// several sweepers (or a sweep racing a confirm) is safe.
type Sweeper struct {
	uc       reservation.UseCase
	interval time.Duration
	logger   logger.ZapLogger
}

func NewSweeper(uc reservation.UseCase, interval time.Duration, log logger.ZapLogger) *Sweeper {
	return &Sweeper{
		uc:       uc,
		interval: interval,
		logger:   log,
	}
}

// Start blocks until ctx is cancelled, running one sweep per interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting reservation expiration sweeper", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping reservation expiration sweeper")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Exposed separately so deployments that
// prefer an external scheduler can trigger sweeps themselves.
func (s *Sweeper) RunOnce(ctx context.Context) {
	result, err := s.uc.ExpireDue(ctx)
	if err != nil {
		s.logger.Error("Reservation sweep failed", zap.Error(err))
		return
	}
	if result.ExpiredCount > 0 || result.FailedCount > 0 {
		s.logger.Info("Reservation sweep finished",
			zap.Int("expired", result.ExpiredCount),
			zap.Int("failed", result.FailedCount),
		)
	}
}
