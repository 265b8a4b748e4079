package ratelimit

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter is a per-key sliding window limit of maxHits per window.
type Limiter struct {
	mu      sync.RWMutex
	clock   clock.Clock
	limits  map[string][]time.Time
	window  time.Duration
	maxHits int
}

func NewLimiter(clk clock.Clock, window time.Duration, maxHits int) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{
		clock:   clk,
		limits:  make(map[string][]time.Time),
		window:  window,
		maxHits: maxHits,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	windowStart := now.Add(-l.window)

	// Clean old entries
	if hits, exists := l.limits[key]; exists {
		valid := hits[:0]
		for _, hit := range hits {
			if hit.After(windowStart) {
				valid = append(valid, hit)
			}
		}
		l.limits[key] = valid
	}

	if len(l.limits[key]) >= l.maxHits {
		return false
	}

	l.limits[key] = append(l.limits[key], now)
	return true
}

// Window rejects work that starts within a fixed interval of the last
// recorded mark. Unlike Limiter, nothing is recorded on check; the
// caller decides when an attempt counts by calling Mark.
type Window struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	last     time.Time
}

func NewWindow(clk clock.Clock, interval time.Duration) *Window {
	if clk == nil {
		clk = clock.New()
	}
	return &Window{clock: clk, interval: interval}
}

// Ready reports whether the interval has elapsed since the last mark, and
// returns the current time so the caller can mark it later.
func (w *Window) Ready() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	if w.last.IsZero() {
		return now, true
	}
	return now, now.Sub(w.last) >= w.interval
}

// Mark records t as the last accepted attempt. Older marks never move
// the window backwards.
func (w *Window) Mark(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t.After(w.last) {
		w.last = t
	}
}

// Reset forgets the last mark.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = time.Time{}
}
