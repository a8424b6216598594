package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives the gate deterministically: sleeping advances time.
type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestGate(c *fakeClock) *Gate {
	return NewGate(WithClock(c.Now), WithSleep(c.Sleep))
}

func TestAdmitUnderLimitDoesNotWait(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := gate.Admit(ctx, Key("airtable", "default"), 5, time.Second); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if len(clock.waits) != 0 {
		t.Fatalf("expected no waits under the limit, got %v", clock.waits)
	}
}

func TestSaturatedWindowWaitsForReset(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(clock)
	ctx := context.Background()
	key := Key("airtable", "default")

	for i := 0; i < 5; i++ {
		if err := gate.Admit(ctx, key, 5, time.Second); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	clock.now = clock.now.Add(300 * time.Millisecond)

	// Sixth admit must suspend for the remainder of the window, then
	// succeed against the fresh window.
	if err := gate.Admit(ctx, key, 5, time.Second); err != nil {
		t.Fatalf("sixth admit: %v", err)
	}
	if len(clock.waits) != 1 {
		t.Fatalf("expected exactly one wait, got %v", clock.waits)
	}
	if clock.waits[0] != 700*time.Millisecond {
		t.Fatalf("expected 700ms wait, got %s", clock.waits[0])
	}
}

func TestWindowResetIsTimeDriven(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(clock)
	ctx := context.Background()
	key := Key("hubspot", "default")

	for i := 0; i < 3; i++ {
		if err := gate.Admit(ctx, key, 3, 10*time.Second); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	// Once the window has elapsed, the next admit resets instead of
	// waiting.
	clock.now = clock.now.Add(10 * time.Second)
	if err := gate.Admit(ctx, key, 3, 10*time.Second); err != nil {
		t.Fatalf("post-reset admit: %v", err)
	}
	if len(clock.waits) != 0 {
		t.Fatalf("expected no waits after reset, got %v", clock.waits)
	}
}

func TestThreeSequentialCallsAgainstLimitTwo(t *testing.T) {
	// Provider limit 2 per 60s: calls 1 and 2 pass immediately, call 3 is
	// delayed by roughly the remaining window, never rejected.
	clock := newFakeClock()
	gate := newTestGate(clock)
	ctx := context.Background()
	key := Key("monday", "default")

	for i := 0; i < 2; i++ {
		if err := gate.Admit(ctx, key, 2, time.Minute); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	clock.now = clock.now.Add(50 * time.Millisecond) // negligible processing time

	if err := gate.Admit(ctx, key, 2, time.Minute); err != nil {
		t.Fatalf("third admit: %v", err)
	}
	if len(clock.waits) != 1 {
		t.Fatalf("expected one wait, got %v", clock.waits)
	}
	if got := clock.waits[0]; got != time.Minute-50*time.Millisecond {
		t.Fatalf("expected wait of remaining window, got %s", got)
	}
}

func TestIndependentWindowsDoNotInterfere(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(clock)
	ctx := context.Background()

	// Saturate one provider's window.
	if err := gate.Admit(ctx, Key("airtable", "default"), 1, time.Minute); err != nil {
		t.Fatalf("saturate: %v", err)
	}

	// Another provider, and another identity of the same provider, are
	// unaffected.
	if err := gate.Admit(ctx, Key("hubspot", "default"), 1, time.Minute); err != nil {
		t.Fatalf("other provider: %v", err)
	}
	if err := gate.Admit(ctx, Key("airtable", "second@example.com"), 1, time.Minute); err != nil {
		t.Fatalf("other identity: %v", err)
	}
	if len(clock.waits) != 0 {
		t.Fatalf("expected no waits across independent windows, got %v", clock.waits)
	}
}

func TestZeroLimitIsUnlimited(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(clock)

	for i := 0; i < 100; i++ {
		if err := gate.Admit(context.Background(), Key("x", "y"), 0, time.Second); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if len(clock.waits) != 0 {
		t.Fatalf("unlimited gate must never wait, got %v", clock.waits)
	}
}

func TestAdmitCancelledContext(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(clock)
	key := Key("airtable", "default")

	if err := gate.Admit(context.Background(), key, 1, time.Minute); err != nil {
		t.Fatalf("saturate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := gate.Admit(ctx, key, 1, time.Minute); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
