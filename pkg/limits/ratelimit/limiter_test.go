package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock for driving the window deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(max int, clock *fakeClock) *Limiter {
	return NewLimiter(Config{
		Window:       60 * time.Second,
		MaxPerWindow: max,
		Now:          clock.Now,
	})
}

func TestLimiter_AllowUpToCap(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(5, clock)

	for i := 0; i < 5; i++ {
		if !limiter.Allow("client-a") {
			t.Fatalf("admission %d unexpectedly denied", i+1)
		}
	}
	if limiter.Allow("client-a") {
		t.Error("admission beyond cap allowed")
	}
}

func TestLimiter_KeysIndependent(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(2, clock)

	limiter.Allow("client-a")
	limiter.Allow("client-a")

	if limiter.Allow("client-a") {
		t.Error("exhausted key allowed")
	}
	if !limiter.Allow("client-b") {
		t.Error("fresh key denied")
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(2, clock)

	limiter.Allow("client-a")
	clock.Advance(30 * time.Second)
	limiter.Allow("client-a")

	if limiter.Allow("client-a") {
		t.Error("admission beyond cap allowed")
	}

	// 31 seconds later the first admission has aged out; the second has not.
	clock.Advance(31 * time.Second)
	if !limiter.Allow("client-a") {
		t.Error("admission denied after first stamp expired")
	}
	if limiter.Allow("client-a") {
		t.Error("second stamp still inside window, cap should hold")
	}
}

func TestLimiter_ExactWindowBoundary(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(1, clock)

	limiter.Allow("client-a")

	// A stamp exactly window-old is expired: strictly-after comparison.
	clock.Advance(60 * time.Second)
	if !limiter.Allow("client-a") {
		t.Error("stamp aged exactly one window should have expired")
	}
}

func TestLimiter_DenialRecordsNothing(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(1, clock)

	limiter.Allow("client-a")
	for i := 0; i < 10; i++ {
		limiter.Allow("client-a")
	}

	// Only the single admitted stamp expires; denials must not have
	// extended the window.
	clock.Advance(61 * time.Second)
	if !limiter.Allow("client-a") {
		t.Error("denied attempts extended the window")
	}
}

func TestLimiter_ConcurrentAdmissions(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(100, clock)

	const goroutines = 20
	const perGoroutine = 10

	var wg sync.WaitGroup
	admitted := make(chan bool, goroutines*perGoroutine)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				admitted <- limiter.Allow("client-a")
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	// Exactly the cap admitted, never more, under concurrency.
	if count != 100 {
		t.Errorf("expected exactly 100 admissions, got %d", count)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(10, clock)

	limiter.Allow("client-a")
	clock.Advance(50 * time.Second)
	limiter.Allow("client-b")

	if limiter.Keys() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", limiter.Keys())
	}

	// client-a's only stamp is now outside the window; client-b's is not.
	clock.Advance(15 * time.Second)
	removed := limiter.Sweep(clock.Now())
	if removed != 1 {
		t.Errorf("expected 1 key removed, got %d", removed)
	}
	if limiter.Keys() != 1 {
		t.Errorf("expected 1 tracked key after sweep, got %d", limiter.Keys())
	}

	// Sweeping never affects admission decisions.
	if !limiter.Allow("client-a") {
		t.Error("swept key denied on return")
	}
}

func TestLimiter_SnapshotRestore(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(2, clock)

	limiter.Allow("client-a")
	limiter.Allow("client-a")
	limiter.Allow("client-b")

	snapshot := limiter.Snapshot()

	restored := newTestLimiter(2, clock)
	restored.Restore(snapshot, clock.Now())

	if restored.Allow("client-a") {
		t.Error("restored exhausted key admitted")
	}
	if !restored.Allow("client-b") {
		t.Error("restored key with headroom denied")
	}
}

func TestLimiter_RestoreDropsExpired(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(1, clock)

	limiter.Allow("client-a")
	snapshot := limiter.Snapshot()

	clock.Advance(2 * time.Minute)

	restored := newTestLimiter(1, clock)
	restored.Restore(snapshot, clock.Now())

	if restored.Keys() != 0 {
		t.Errorf("expected expired snapshot entries dropped, tracked %d", restored.Keys())
	}
	if !restored.Allow("client-a") {
		t.Error("stale snapshot still throttling")
	}
}

func TestLimiter_Defaults(t *testing.T) {
	limiter := NewLimiter(Config{})

	if limiter.Window() != DefaultWindow {
		t.Errorf("expected default window %v, got %v", DefaultWindow, limiter.Window())
	}
}
