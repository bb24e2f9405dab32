package insta

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DedupGuard suppresses reprocessing of a redelivered event. Cross-instance
// correctness comes from the store's atomic claim; singleflight collapses
// concurrent identical deliveries inside one process so both get the same
// outcome without a second claim attempt.
type DedupGuard struct {
	store DedupStore
	ttl   time.Duration
	log   *zap.Logger
	sf    singleflight.Group
}

func NewDedupGuard(store DedupStore, ttl time.Duration, log *zap.Logger) *DedupGuard {
	return &DedupGuard{store: store, ttl: ttl, log: log}
}

// Run claims the event id and executes fn only for the first delivery.
// Claim errors fail open: dedup is best-effort and never drops an event.
func (g *DedupGuard) Run(ctx context.Context, eventID string, fn func(context.Context) Outcome) Outcome {
	v, _, _ := g.sf.Do(eventID, func() (any, error) {
		claimed, err := g.store.ClaimEvent(ctx, eventID, time.Now().Add(g.ttl))
		if err != nil {
			g.log.Warn("dedup claim failed, processing anyway",
				zap.String("event_id", eventID), zap.Error(err))
		} else if !claimed {
			return OutcomeDuplicate, nil
		}
		return fn(ctx), nil
	})
	return v.(Outcome)
}

// Janitor purges expired claims until ctx is done.
func (g *DedupGuard) Janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := g.store.PurgeExpired(ctx)
			if err != nil {
				g.log.Warn("dedup purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				g.log.Debug("dedup purge", zap.Int64("removed", n))
			}
		}
	}
}
