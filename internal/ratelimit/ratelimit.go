// Package ratelimit bounds how often an identity may perform an action
// within a trailing time window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

const (
	DefaultLimit  = 2
	DefaultWindow = 60 * time.Second
)

// Store holds the recent attempt timestamps per key. Update must apply fn
// atomically with respect to other Update calls for the same key; the
// slice fn returns replaces the stored one.
type Store interface {
	Update(ctx context.Context, key string, fn func(attempts []time.Time) []time.Time) error
}

// Sweeper is implemented by stores that can drop every key whose newest
// attempt is not after cutoff. Limiter sweeps such stores once per window
// so identities that never return do not accumulate.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) error
}

// Limiter is a sliding-window log limiter.
type Limiter struct {
	store  Store
	clock  clock.Clock
	limit  int
	window time.Duration

	sweepMu   sync.Mutex
	lastSweep time.Time
}

type Option func(*Limiter)

// WithLimit overrides the number of attempts allowed per window.
func WithLimit(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithWindow overrides the trailing window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

func New(store Store, clk clock.Clock, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		clock:  clk,
		limit:  DefaultLimit,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Limit() int            { return l.limit }
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records an attempt for key, or returns *domain.RateLimitedError
// when key already has limit attempts inside the window. Rejected
// attempts are not recorded.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	now := l.clock.Now()
	cutoff := now.Add(-l.window)
	l.maybeSweep(ctx, now, cutoff)
	allowed := false

	err := l.store.Update(ctx, key, func(attempts []time.Time) []time.Time {
		kept := attempts[:0]
		for _, at := range attempts {
			if at.After(cutoff) {
				kept = append(kept, at)
			}
		}
		if len(kept) >= l.limit {
			return kept
		}
		allowed = true
		return append(kept, now)
	})
	if err != nil {
		return err
	}
	if !allowed {
		return &domain.RateLimitedError{Limit: l.limit, Window: l.window}
	}
	return nil
}

func (l *Limiter) maybeSweep(ctx context.Context, now, cutoff time.Time) {
	sweeper, ok := l.store.(Sweeper)
	if !ok {
		return
	}
	l.sweepMu.Lock()
	due := now.Sub(l.lastSweep) >= l.window
	if due {
		l.lastSweep = now
	}
	l.sweepMu.Unlock()

	// A failed sweep only delays reclaiming memory.
	if due {
		_ = sweeper.Sweep(ctx, cutoff)
	}
}
