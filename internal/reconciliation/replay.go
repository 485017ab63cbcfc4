package reconciliation

import (
	"context"
	"time"

	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/redis"
)

// replayTTL bounds how long a processed webhook delivery is remembered.
// Providers stop retrying well inside this window.
const replayTTL = 48 * time.Hour

// ReplayGuard is the best-effort fast path for dropping repeated webhook
// deliveries before they reach the engine. The database conditional update
// stays the authority: a guard miss is never a correctness problem.
type ReplayGuard struct {
	redis *redis.Client
	log   *logger.Logger
	ttl   time.Duration
}

// NewReplayGuard builds the guard. A nil redis client disables it: every
// delivery is treated as first-seen.
func NewReplayGuard(client *redis.Client, log *logger.Logger) *ReplayGuard {
	return &ReplayGuard{redis: client, log: log, ttl: replayTTL}
}

// CheckAndMark returns true when this provider/event pair has not been seen
// yet and marks it as seen. Redis failures are logged and treated as
// first-seen so a cache outage never drops a payment.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, provider, eventID string) bool {
	if g == nil || g.redis == nil || eventID == "" {
		return true
	}
	fresh, err := g.redis.SetNX(ctx, g.redis.ReplayKey(provider, eventID), time.Now().UTC().Unix(), g.ttl)
	if err != nil {
		if g.log != nil {
			g.log.Warn(g.log.WithField(ctx, "replay_error", err.Error()), "replay guard unavailable, processing anyway")
		}
		return true
	}
	return fresh
}

// Release forgets a mark after a failed reconciliation so the provider's
// retry is not swallowed by the guard.
func (g *ReplayGuard) Release(ctx context.Context, provider, eventID string) {
	if g == nil || g.redis == nil || eventID == "" {
		return
	}
	if err := g.redis.Del(ctx, g.redis.ReplayKey(provider, eventID)); err != nil && g.log != nil {
		g.log.Warn(g.log.WithField(ctx, "replay_error", err.Error()), "replay guard release failed")
	}
}
