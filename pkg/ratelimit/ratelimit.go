// Package ratelimit provides fixed-window rate limiting for the Agent Arena.
// The in-memory backend serves a single instance; the Redis backend shares
// windows across instances.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed bool
	RetryAt time.Time // Window reset instant; zero when allowed
}

// Limiter checks whether key may perform one more action within a window
// that admits at most limit actions.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Rule is a named budget such as "10 per minute".
type Rule struct {
	Limit  int
	Window time.Duration
}

type entry struct {
	count   int
	resetAt time.Time
}

// Memory is an in-process fixed-window limiter. The first hit on a key opens
// a window; hits beyond the limit inside it are denied until it resets.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory limiter.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || now.After(e.resetAt) {
		m.entries[key] = &entry{count: 1, resetAt: now.Add(window)}
		return Decision{Allowed: true}, nil
	}

	if e.count >= limit {
		return Decision{Allowed: false, RetryAt: e.resetAt}, nil
	}

	e.count++
	return Decision{Allowed: true}, nil
}

// Sweep drops expired windows. Call it periodically on long-running servers.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if now.After(e.resetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// FormatRetryAfter renders a wait as "N seconds" below one minute and as
// whole minutes, rounded up, otherwise.
func FormatRetryAfter(wait time.Duration) string {
	seconds := RetryAfterSeconds(wait)
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	return fmt.Sprintf("%d minutes", int(math.Ceil(float64(seconds)/60)))
}

// RetryAfterSeconds rounds a wait up to whole seconds, never below zero.
func RetryAfterSeconds(wait time.Duration) int {
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}

// Message is the user-facing text for a denied action.
func Message(retryAt, now time.Time) string {
	return fmt.Sprintf("You're doing that too fast. Try again in %s.", FormatRetryAfter(retryAt.Sub(now)))
}
