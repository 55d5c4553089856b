// Package resilience isolates the engine from its two sources of contention:
// the external insight generator (retry + circuit breaker) and concurrent
// upload cycles (bulkhead).
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RetryPolicy bounds how hard the engine leans on a flaky collaborator.
// Attempts counts total calls, not extra retries. The delay doubles after
// each failure, capped at MaxDelay, with jitter so concurrent callers do
// not retry in lockstep.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	return p
}

// Retry runs op until it succeeds, the policy is exhausted, or ctx ends.
// The last op error is returned when attempts run out.
func Retry(ctx context.Context, p RetryPolicy, op func() error) error {
	p = p.normalized()

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
		if attempt >= p.Attempts {
			return lastErr
		}

		// Uniform jitter over [delay/2, delay].
		wait := delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if delay *= 2; delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// NewBreaker builds the circuit breaker guarding an external collaborator.
// Tuned for the insight generator: a slow text-generation API where three
// consecutive failures almost always mean an outage, and where probing more
// than one request through a half-open circuit just burns quota. State
// changes are logged so an open circuit is visible without a metrics query.
func NewBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Bulkhead caps how many reconciliation cycles run at once. A cycle holds
// the whole input in memory while it normalizes and merges, so unbounded
// concurrent uploads would trade latency for an OOM.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead allows up to size concurrent holders.
func NewBulkhead(size int) *Bulkhead {
	return &Bulkhead{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot frees up or ctx ends.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the slot taken by a successful Acquire.
func (b *Bulkhead) Release() {
	<-b.slots
}
