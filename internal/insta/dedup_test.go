package insta

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDedupGuardFirstRuns(t *testing.T) {
	g := NewDedupGuard(newMemDedup(), time.Hour, zap.NewNop())

	outcome := g.Run(context.Background(), "e1", func(context.Context) Outcome {
		return OutcomeMessageProcessed
	})
	if outcome != OutcomeMessageProcessed {
		t.Fatalf("first delivery must run, got %q", outcome)
	}

	outcome = g.Run(context.Background(), "e1", func(context.Context) Outcome {
		t.Fatal("duplicate must not execute")
		return ""
	})
	if outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate ack, got %q", outcome)
	}
}

func TestDedupGuardFailsOpen(t *testing.T) {
	store := newMemDedup()
	store.err = errBoom
	g := NewDedupGuard(store, time.Hour, zap.NewNop())

	var ran bool
	g.Run(context.Background(), "e1", func(context.Context) Outcome {
		ran = true
		return OutcomeMessageProcessed
	})
	if !ran {
		t.Fatal("claim errors must not drop the event")
	}
}

func TestDedupGuardConcurrentSingleExecution(t *testing.T) {
	g := NewDedupGuard(newMemDedup(), time.Hour, zap.NewNop())

	var executions int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Run(context.Background(), "same-event", func(context.Context) Outcome {
				atomic.AddInt32(&executions, 1)
				time.Sleep(10 * time.Millisecond)
				return OutcomeMessageProcessed
			})
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&executions); n != 1 {
		t.Fatalf("expected a single execution, got %d", n)
	}
}

func TestDedupGuardExpiredClaimReusable(t *testing.T) {
	g := NewDedupGuard(newMemDedup(), -time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		outcome := g.Run(context.Background(), "e1", func(context.Context) Outcome {
			return OutcomeMessageProcessed
		})
		if outcome != OutcomeMessageProcessed {
			t.Fatalf("expired claim should be reusable on pass %d, got %q", i, outcome)
		}
	}
}
