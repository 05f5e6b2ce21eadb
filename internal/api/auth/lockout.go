package auth

import (
	"sync"
	"time"
)

// lockoutEntry is the failure history for one login name.
type lockoutEntry struct {
	failures  int
	expiresAt time.Time
}

func (e *lockoutEntry) locked() bool {
	return !e.expiresAt.IsZero() && time.Now().Before(e.expiresAt)
}

// LockoutTracker counts failed logins per username and locks the name
// out once the threshold is crossed.
//
// State lives in memory, so a restart clears all lockouts. That is fine
// for a single-instance deployment; a cluster would need this backed by
// shared storage.
type LockoutTracker struct {
	mu              sync.RWMutex
	entries         map[string]*lockoutEntry
	threshold       int
	lockoutDuration time.Duration
}

// NewLockoutTracker locks a name out for duration after threshold
// consecutive failures.
func NewLockoutTracker(threshold int, duration time.Duration) *LockoutTracker {
	tracker := &LockoutTracker{
		entries:         make(map[string]*lockoutEntry),
		threshold:       threshold,
		lockoutDuration: duration,
	}

	go tracker.pruneLoop()

	return tracker
}

// RecordFailure counts a failed login and reports whether the name is
// now locked.
func (t *LockoutTracker) RecordFailure(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[key]
	if !exists {
		entry = &lockoutEntry{}
		t.entries[key] = entry
	}

	if entry.locked() {
		return true
	}

	// An expired lockout starts a fresh count.
	if !entry.expiresAt.IsZero() {
		entry.failures = 0
		entry.expiresAt = time.Time{}
	}

	entry.failures++
	if entry.failures >= t.threshold {
		entry.expiresAt = time.Now().Add(t.lockoutDuration)
		return true
	}

	return false
}

// IsLocked reports whether the name is currently locked out.
func (t *LockoutTracker) IsLocked(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[key]
	return exists && entry.locked()
}

// RemainingLockoutTime returns how long until the lockout lifts, or
// zero when the name is not locked.
func (t *LockoutTracker) RemainingLockoutTime(key string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[key]
	if !exists || entry.expiresAt.IsZero() {
		return 0
	}

	remaining := time.Until(entry.expiresAt)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// ClearFailures forgets the failure history after a successful login.
func (t *LockoutTracker) ClearFailures(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key)
}

func (t *LockoutTracker) pruneLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		t.prune()
	}
}

// prune drops entries whose lockout has lapsed or that never reached
// the threshold and went quiet.
func (t *LockoutTracker) prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for key, entry := range t.entries {
		if entry.failures == 0 || (!entry.expiresAt.IsZero() && now.After(entry.expiresAt)) {
			delete(t.entries, key)
		}
	}
}
