// Package dedup coalesces concurrent requests for the same key into a single
// call and briefly keeps successful results around so that near-simultaneous
// duplicates are absorbed too.
package dedup

import (
	"context"
	"sync"
	"time"

	"gitlab-pulse/internal/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultGrace is how long a successful result stays registered.
const DefaultGrace = time.Second

type settled[V any] struct {
	val V
	gen uint64
	at  time.Time
}

// Group is safe for concurrent use. The zero value is not usable; call New.
type Group[V any] struct {
	clock clockwork.Clock
	grace time.Duration
	sf    singleflight.Group

	mu      sync.Mutex
	gen     uint64
	settled map[string]settled[V]
}

// New returns a Group that keeps successes registered for grace.
func New[V any](clock clockwork.Clock, grace time.Duration) *Group[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if grace < 0 {
		grace = 0
	}
	return &Group[V]{
		clock:   clock,
		grace:   grace,
		settled: make(map[string]settled[V]),
	}
}

// Do returns the result of fn for key, sharing one invocation between all
// callers that overlap with it. A failed call is forgotten at once so the next
// caller retries. fn runs detached from ctx cancellation; ctx only bounds how
// long this caller waits.
func (g *Group[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	g.mu.Lock()
	if s, ok := g.settled[key]; ok {
		// The cleanup timer may not have fired yet; age decides.
		if g.clock.Since(s.at) < g.grace {
			g.mu.Unlock()
			metrics.DedupShared.Inc()
			log.Trace().Str("key", key).Msg("Reusing settled request")
			return s.val, nil
		}
		delete(g.settled, key)
	}
	g.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (any, error) {
		v, err := fn(detached)
		if err == nil {
			g.settle(key, v)
		}
		return v, err
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.DedupShared.Inc()
		}
		val, _ := res.Val.(V)
		return val, res.Err
	}
}

// Forget drops any settled result for key.
func (g *Group[V]) Forget(key string) {
	g.mu.Lock()
	delete(g.settled, key)
	g.mu.Unlock()
}

func (g *Group[V]) settle(key string, v V) {
	if g.grace == 0 {
		return
	}

	g.mu.Lock()
	g.gen++
	gen := g.gen
	g.settled[key] = settled[V]{val: v, gen: gen, at: g.clock.Now()}
	g.mu.Unlock()

	g.clock.AfterFunc(g.grace, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if s, ok := g.settled[key]; ok && s.gen == gen {
			delete(g.settled, key)
		}
	})
}

func (g *Group[V]) settledLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.settled)
}
