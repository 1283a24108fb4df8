package session

import (
	"context"
	"time"
)

// Store owns session creation, refresh, mutation and expiry.
// Mutations do no validation; the transition validator runs before them.
type Store interface {
	// GetOrCreate returns the live session for userID, refreshing its activity
	// time, or replaces an expired/missing one with a fresh root session.
	GetOrCreate(ctx context.Context, userID string, now time.Time) (*Session, error)
	// TrySetInFlight flips the in-flight guard false->true atomically.
	TrySetInFlight(ctx context.Context, userID string) (bool, error)
	ClearInFlight(ctx context.Context, userID string) error
	RecordAnswer(ctx context.Context, userID, key, value string) error
	Advance(ctx context.Context, userID, nextStepID string) error
	// Reset moves the session back to the root step and clears answers.
	Reset(ctx context.Context, userID string, now time.Time) error
	SetDisplayName(ctx context.Context, userID, name string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}
