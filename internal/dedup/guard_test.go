package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source for simulating the retention delay.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
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

func TestClaim_SecondClaimRejected(t *testing.T) {
	g := NewGuard(0)

	if !g.Claim("msg-1") {
		t.Fatal("first Claim returned false, want true")
	}
	if g.Claim("msg-1") {
		t.Error("second Claim returned true, want false")
	}
}

func TestClaim_DistinctIdentifiersIndependent(t *testing.T) {
	g := NewGuard(0)

	if !g.Claim("msg-1") || !g.Claim("msg-2") {
		t.Error("claims for distinct identifiers should both succeed")
	}
}

func TestRelease_BlocksUntilRetentionElapses(t *testing.T) {
	clock := newFakeClock()
	g := NewGuard(60 * time.Second)
	g.SetClock(clock.Now)

	if !g.Claim("msg-1") {
		t.Fatal("Claim failed")
	}
	g.Release("msg-1")

	// Retry shortly after completion is still a duplicate.
	clock.Advance(30 * time.Second)
	if g.Claim("msg-1") {
		t.Error("Claim inside retention window returned true, want false")
	}

	// After the retention delay the identifier is claimable again.
	clock.Advance(31 * time.Second)
	if !g.Claim("msg-1") {
		t.Error("Claim after retention elapsed returned false, want true")
	}
}

func TestRelease_UnknownIdentifierIsNoop(t *testing.T) {
	g := NewGuard(0)
	g.Release("never-claimed")
	if g.Len() != 0 {
		t.Errorf("Len = %d after releasing unknown id, want 0", g.Len())
	}
}

func TestInFlightEntriesAreNotPruned(t *testing.T) {
	clock := newFakeClock()
	g := NewGuard(time.Second)
	g.SetClock(clock.Now)

	if !g.Claim("msg-1") {
		t.Fatal("Claim failed")
	}
	clock.Advance(time.Hour)

	if g.Claim("msg-1") {
		t.Error("in-flight identifier was reclaimable without Release")
	}
}

func TestGuard_NoPermanentLeak(t *testing.T) {
	clock := newFakeClock()
	g := NewGuard(60 * time.Second)
	g.SetClock(clock.Now)

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("msg-%d", i)
		if !g.Claim(id) {
			t.Fatalf("Claim(%s) failed", id)
		}
		g.Release(id)
	}

	clock.Advance(61 * time.Second)
	if g.Len() != 0 {
		t.Errorf("Len = %d after retention elapsed for all entries, want 0", g.Len())
	}
}

func TestClaim_ConcurrentSafety(t *testing.T) {
	g := NewGuard(0)

	const goroutines = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Claim("shared") {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claims != 1 {
		t.Errorf("identifier claimed %d times concurrently, want exactly 1", claims)
	}
}
