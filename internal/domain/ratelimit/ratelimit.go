package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultWindow    = 10 * time.Second
	DefaultThreshold = 3
)

// Window is a fixed rate-limit window for one user.
type Window struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"resetAt"`
}

func (w *Window) Expired(now time.Time) bool {
	return now.After(w.ResetAt)
}

// Limiter decides whether an event from a user may be processed at all.
type Limiter interface {
	Allow(ctx context.Context, userID string, now time.Time) (bool, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}
