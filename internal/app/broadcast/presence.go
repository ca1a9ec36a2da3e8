package broadcast

import (
	"sync"
	"time"
)

// Tracker keeps short-lived online records for locally connected players.
// Records expire unless renewed by inbound events or connections.
type Tracker struct {
	mu     sync.Mutex
	ttl    time.Duration
	expiry map[string]time.Time
	now    func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Tracker{
		ttl:    ttl,
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

// WithClock overrides the tracker clock. Test hook.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// MarkOnline records the player and reports whether they were offline before.
func (t *Tracker) MarkOnline(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, known := t.expiry[playerID]
	t.expiry[playerID] = t.now().Add(t.ttl)
	return !known
}

// MarkOffline drops the record and reports whether the player was online.
func (t *Tracker) MarkOffline(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, known := t.expiry[playerID]
	delete(t.expiry, playerID)
	return known
}

// Renew pushes the expiry out for an already-online player.
func (t *Tracker) Renew(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, known := t.expiry[playerID]; known {
		t.expiry[playerID] = t.now().Add(t.ttl)
	}
}

// Online reports whether the player currently has a live record.
func (t *Tracker) Online(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline, known := t.expiry[playerID]
	return known && t.now().Before(deadline)
}

// Sweep removes expired records and returns the ids that just went offline.
func (t *Tracker) Sweep(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []string
	for playerID, deadline := range t.expiry {
		if !now.Before(deadline) {
			expired = append(expired, playerID)
			delete(t.expiry, playerID)
		}
	}
	return expired
}
