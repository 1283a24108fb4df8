package memory

import (
	"context"
	"sync"
	"time"

	"github.com/survey-hub/survey-hub/internal/domain/ratelimit"
)

// RateLimiter is a fixed-window ratelimit.Limiter kept in process memory.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*ratelimit.Window
	window    time.Duration
	threshold int
}

func NewRateLimiter(window time.Duration, threshold int) *RateLimiter {
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	if threshold <= 0 {
		threshold = ratelimit.DefaultThreshold
	}
	return &RateLimiter{
		windows:   make(map[string]*ratelimit.Window),
		window:    window,
		threshold: threshold,
	}
}

// Allow counts the call against the user's current window. A denied call
// still increments the count and never moves the reset time.
func (l *RateLimiter) Allow(_ context.Context, userID string, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[userID]
	if !ok || w.Expired(now) {
		l.windows[userID] = &ratelimit.Window{Count: 1, ResetAt: now.Add(l.window)}
		return true, nil
	}
	w.Count++
	return w.Count <= l.threshold, nil
}

func (l *RateLimiter) Sweep(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, w := range l.windows {
		if w.Expired(now) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed, nil
}

func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
