// Package dedup provides a process-local guard against duplicate
// submission processing caused by transport-level retries.
package dedup

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultRetention is how long a released identifier keeps blocking
// duplicate claims, so a late retry is still recognized.
const DefaultRetention = 60 * time.Second

// Guard is an expiring set of claimed submission identifiers. An entry is
// added atomically on Claim and, after Release, expires retention later.
// It is best-effort and process-local: a restart clears it.
type Guard struct {
	mu        sync.Mutex
	entries   map[string]time.Time // identifier -> expiry; zero means in flight
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewGuard creates a Guard with the given retention delay.
// If retention is <= 0, DefaultRetention is used.
func NewGuard(retention time.Duration) *Guard {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Guard{
		entries:   make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// SetClock overrides the time source. Tests use this to simulate the
// retention delay without sleeping.
func (g *Guard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Claim marks id as in flight and returns true, or returns false if the
// identifier is already claimed or still inside its retention window.
func (g *Guard) Claim(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.prune(now)

	if _, ok := g.entries[id]; ok {
		g.logger.Debug("duplicate submission dropped", "id", id)
		return false
	}
	g.entries[id] = time.Time{}
	return true
}

// Release schedules removal of id after the retention delay. The entry
// keeps rejecting duplicate claims until then.
func (g *Guard) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entries[id]; !ok {
		return
	}
	g.entries[id] = g.now().Add(g.retention)
}

// Len returns the number of tracked identifiers after pruning expired ones.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return len(g.entries)
}

// prune removes released entries whose retention has elapsed. In-flight
// entries (zero expiry) stay until their matching Release.
func (g *Guard) prune(now time.Time) {
	for id, expiry := range g.entries {
		if !expiry.IsZero() && !expiry.After(now) {
			delete(g.entries, id)
		}
	}
}
