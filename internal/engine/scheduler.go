package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hbagheri/mailflow/internal/model"
)

// RunScheduler is the resumption driver: on every tick it launches a loop for
// any campaign stuck in "sending" with no active run in this process. That
// covers crash recovery and runs started from another process. Blocks until
// ctx is cancelled.
func (e *Engine) RunScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	e.resumeSending(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			e.resumeSending(ctx)
		}
	}
}

func (e *Engine) resumeSending(ctx context.Context) {
	camps, err := e.campaigns.ListByStatus(ctx, model.CampaignSending)
	if err != nil {
		e.log.Error("scheduler: list sending campaigns", zap.Error(err))
		return
	}
	for _, c := range camps {
		if !e.tryAcquire(c.ID) {
			continue // loop already running here
		}
		e.log.Info("resuming campaign run", zap.String("campaign_id", c.ID))
		e.spawn(c.ID)
	}
}
