package engine

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Governor enforces each campaign's messages/second ceiling. One limiter per
// campaign with burst 1, so consecutive sends of the same campaign are spaced
// 1/send_rate apart while independent campaigns never throttle each other.
type Governor struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewGovernor() *Governor {
	return &Governor{limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until the next send for the campaign is permissible. The caller
// passes the freshly re-read send_rate on every call, so mid-run rate changes
// take effect at the next wait.
func (g *Governor) Wait(ctx context.Context, campaignID string, perSecond int) error {
	if perSecond <= 0 {
		perSecond = 1
	}

	g.mu.Lock()
	lim, ok := g.limiters[campaignID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
		g.limiters[campaignID] = lim
	} else if lim.Limit() != rate.Limit(perSecond) {
		lim.SetLimit(rate.Limit(perSecond))
	}
	g.mu.Unlock()

	return lim.Wait(ctx)
}

// Forget drops a campaign's limiter when its run ends.
func (g *Governor) Forget(campaignID string) {
	g.mu.Lock()
	delete(g.limiters, campaignID)
	g.mu.Unlock()
}
