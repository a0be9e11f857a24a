package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds in-flight calls and request rate against one external
// provider. Hundreds of query pipelines may be in flight; the gate is what
// keeps the provider within its limits.
type Gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New creates a gate allowing maxInFlight concurrent calls and, when
// perSecond > 0, at most perSecond requests per second.
func New(maxInFlight int64, perSecond float64) *Gate {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	g := &Gate{sem: semaphore.NewWeighted(maxInFlight)}
	if perSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return g
}

// Acquire blocks until a slot (and a rate token) is available or the
// context is done. Callers must Release after the provider call returns.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.sem.Release(1)
			return err
		}
	}
	return nil
}

func (g *Gate) Release() {
	g.sem.Release(1)
}
