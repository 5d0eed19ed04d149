package webhook

import (
	"sync"
	"time"
)

// URLLimiter enforces a sliding-window cap on delivery attempts per
// destination URL: at most Max admits within the trailing Window. It is an
// injected component with owned state, so tests and callers get isolation
// by constructing fresh instances.
//
// Unlike the token-bucket limiter at the HTTP edge, the delivery contract
// here is a strict window: exactly Max admits inside any 60s span, the
// next one rejected, admits resuming once the window slides past. A
// token bucket smooths over time and cannot express that boundary, so
// this one is tracked explicitly.
//
// Rejected calls are not recorded as attempts; only admitted deliveries
// consume window slots.
//
// Safe for concurrent use.
type URLLimiter struct {
	window time.Duration
	max    int

	mu   sync.Mutex
	hits map[string][]time.Time

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewURLLimiter constructs a limiter admitting max attempts per URL within
// the sliding window. Non-positive arguments fall back to the delivery
// defaults (10 per 60s).
func NewURLLimiter(window time.Duration, max int) *URLLimiter {
	if window <= 0 {
		window = 60 * time.Second
	}
	if max <= 0 {
		max = 10
	}
	return &URLLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether a delivery to url may proceed, recording the
// attempt when admitted. Entries older than the window are pruned on
// every call, so idle URLs do not accumulate state.
func (l *URLLimiter) Allow(url string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.hits[url][:0]
	for _, t := range l.hits[url] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.hits[url] = kept
		return false
	}

	l.hits[url] = append(kept, now)
	return true
}
