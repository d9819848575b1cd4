// Package ratelimit implements fixed-window request counting per client key.
//
// The in-memory Memory limiter is the default. internal/store provides a
// Postgres-backed implementation of the same Limiter interface for
// deployments that run more than one process behind a load balancer.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults for the public submission route: 5 requests per 15 minutes.
const (
	DefaultWindow = 15 * time.Minute
	DefaultMax    = 5
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool

	// Limit is the configured maximum per window.
	Limit int

	// Remaining is how many more requests the key may make in the current
	// window. Never negative.
	Remaining int

	// ResetAt is when the current window expires.
	ResetAt time.Time
}

// RetryAfter is the time until the window resets, rounded up to a whole
// second and never less than one.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}

// Limiter admits or rejects a request for a client key.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Sweeper deletes windows that have expired. Used by RunJanitor.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// NewDecision derives a Decision from a window's count.
func NewDecision(count, max int, windowStart time.Time, window time.Duration) Decision {
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= max,
		Limit:     max,
		Remaining: remaining,
		ResetAt:   windowStart.Add(window),
	}
}

// ─── MEMORY LIMITER ───────────────────────────────────────────────────────────

type counter struct {
	start time.Time
	count int
}

// Memory is a process-local fixed-window limiter. State is lost on restart.
//
// A single mutex guards the whole map. The critical section is a map lookup
// and an increment, so the check-and-increment for a key is atomic and no
// more than max requests are admitted per window even under concurrent load.
type Memory struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*counter
}

// Option configures a Memory limiter.
type Option func(*Memory)

// WithClock replaces time.Now. Tests use it to step through windows.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// NewMemory returns a limiter admitting max requests per window for each key.
// Non-positive values fall back to DefaultWindow / DefaultMax.
func NewMemory(window time.Duration, max int, opts ...Option) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	m := &Memory{
		window:  window,
		max:     max,
		now:     time.Now,
		windows: make(map[string]*counter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow satisfies Limiter. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	return m.Admit(key), nil
}

// Admit counts one request for key.
//
// A missing or expired window (now − start ≥ window) is replaced by a fresh
// one with count 1. Otherwise the count is incremented and the request is
// admitted while count ≤ max.
func (m *Memory) Admit(key string) Decision {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= m.window {
		w = &counter{start: now, count: 1}
		m.windows[key] = w
		return NewDecision(w.count, m.max, w.start, m.window)
	}

	// Rejected requests still count; saturating at max+1 keeps the counter
	// from growing without bound for a hammering client.
	if w.count <= m.max {
		w.count++
	}
	return NewDecision(w.count, m.max, w.start, m.window)
}

// Sweep drops every expired window and reports how many were removed.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if now.Sub(w.start) >= m.window {
			delete(m.windows, key)
			removed++
		}
	}
	return removed, nil
}

// Len is the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
