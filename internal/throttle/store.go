// Package throttle suppresses alert storms with per-policy sliding-window
// admission control.
//
// This is the one engine component with mutable cross-call state. Counters
// are keyed by policy ID; the admit-and-increment operation is atomic per
// key (per-key mutex), so two concurrent events matching the same policy
// can never both be admitted when only one slot remains.
package throttle

import (
	"sync"
	"time"

	"github.com/mlenstra/shrike/internal/types"
)

// Decision is the outcome of an admission check.
type Decision int

const (
	// Admitted means the trigger is within the policy's window budget.
	Admitted Decision = iota
	// Suppressed means the window budget is exhausted. The alert is still
	// recorded (status suppressed) for auditability; delivery is skipped.
	Suppressed
)

// Store tracks recent trigger timestamps per policy.
type Store struct {
	mu      sync.Mutex
	windows map[types.PolicyID]*window
}

type window struct {
	mu     sync.Mutex
	stamps []time.Time
}

// NewStore creates an empty throttle store.
func NewStore() *Store {
	return &Store{windows: make(map[types.PolicyID]*window)}
}

// Admit checks and records one trigger for the policy at time now.
// Timestamps older than now-windowSize are pruned lazily; the trigger is
// admitted and its timestamp recorded if fewer than maxPerWindow remain.
// Suppressed triggers are not recorded, so the budget frees up as admitted
// triggers age out. A zero windowSize disables throttling for the policy.
func (s *Store) Admit(policyID types.PolicyID, now time.Time, windowSize time.Duration, maxPerWindow int) Decision {
	if windowSize <= 0 {
		return Admitted
	}

	w := s.window(policyID)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-windowSize)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= maxPerWindow {
		return Suppressed
	}

	w.stamps = append(w.stamps, now)
	return Admitted
}

// Pending returns the current in-window trigger count for a policy.
func (s *Store) Pending(policyID types.PolicyID, now time.Time, windowSize time.Duration) int {
	w := s.window(policyID)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-windowSize)
	n := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// window returns the per-policy window, creating it on first use.
func (s *Store) window(policyID types.PolicyID) *window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[policyID]
	if !ok {
		w = &window{}
		s.windows[policyID] = w
	}
	return w
}
