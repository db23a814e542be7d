// Package presence tracks whether the operator's softphone client is
// currently reachable. Presence updates arrive from the client heartbeat
// over HTTP in arbitrary order; the tracker keeps last-write-wins state
// per identity with no history.
package presence

import (
	"sync"
	"time"
)

// State is the last known presence of one identity.
type State struct {
	Identity    string
	Connected   bool
	LastUpdated time.Time
}

// Tracker holds the latest connected flag per client identity. The zero
// value is not usable; call NewTracker. At process start every identity
// is absent, which reads as not present.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]State
	// nowFunc allows overriding the current time for testing.
	nowFunc func() time.Time
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states:  make(map[string]State),
		nowFunc: time.Now,
	}
}

// Set records the latest connected flag for an identity, overwriting any
// prior value. Last write wins by arrival order at the tracker.
func (t *Tracker) Set(identity string, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[identity] = State{
		Identity:    identity,
		Connected:   connected,
		LastUpdated: t.nowFunc(),
	}
}

// IsPresent returns the last known connected flag for an identity, or
// false if the identity has never reported.
func (t *Tracker) IsPresent(identity string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[identity].Connected
}

// Snapshot returns the full presence state for an identity. The second
// return value is false when the identity has never reported.
func (t *Tracker) Snapshot(identity string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[identity]
	return s, ok
}
