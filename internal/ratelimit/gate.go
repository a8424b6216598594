// Package ratelimit implements the per-provider sliding-window request
// gate. Each provider/identity pair gets an independent window created
// lazily on first admit; waiting on a saturated window never blocks an
// unrelated one.
//
// The gate is mutex-guarded, but it is designed for the single-process,
// effectively sequential call pattern of a connector invocation. Separate
// processes do not share windows, so the remote ceiling can still be
// exceeded when invocations overlap. That is an accepted property of the
// per-process design, not something this package compensates for.
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

// Window is a rolling-window request counter for one provider/identity
// pair. Reset is time-driven only: once windowDuration has elapsed since
// windowStart the counter starts over.
type Window struct {
	count       int
	windowStart time.Time
}

// Gate admits or delays calls against per-key windows.
type Gate struct {
	mu      sync.Mutex
	windows map[string]*Window

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSleep replaces the suspension primitive, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) { g.sleep = sleep }
}

// NewGate creates an empty gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		windows: make(map[string]*Window),
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key builds the window key for a provider/identity pair.
func Key(providerID, identityKey string) string {
	return providerID + "/" + identityKey
}

// Admit blocks until the window for key has room, then counts the call.
// A limit of zero or less admits immediately (unlimited). The wait is a
// plain timed suspension; cancelling ctx aborts it and returns ctx.Err()
// without counting the call.
func (g *Gate) Admit(ctx context.Context, key string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return nil
	}

	for {
		g.mu.Lock()
		w, ok := g.windows[key]
		now := g.now()
		if !ok {
			w = &Window{windowStart: now}
			g.windows[key] = w
		}

		// Time-driven reset.
		if now.Sub(w.windowStart) >= window {
			w.count = 0
			w.windowStart = now
		}

		if w.count < limit {
			w.count++
			g.mu.Unlock()
			return nil
		}

		remaining := window - now.Sub(w.windowStart)
		g.mu.Unlock()

		log.Printf("⏳ Rate limit reached for %s (%d/%s), waiting %s for window reset", key, limit, window, remaining)
		if err := g.sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
