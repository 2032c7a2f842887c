// Package throttle bounds how aggressively the fetch pipeline hits upstream
// providers: a semaphore caps in-flight work and a rate limiter enforces a
// minimum delay between dispatches.
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle coordinates concurrent provider fetches.
type Throttle struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// New creates a Throttle allowing maxConcurrent simultaneous tasks with at
// least minDelay between successive dispatches. maxConcurrent below 1 is
// treated as 1; a zero minDelay disables pacing.
func New(maxConcurrent int, minDelay time.Duration) *Throttle {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if minDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(minDelay), 1)
	}
	return &Throttle{
		sem:     make(chan struct{}, maxConcurrent),
		limiter: limiter,
	}
}

// Do runs fn once a slot and a dispatch token are available. The context
// cancels the wait as well as the work.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-t.sem }()

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
