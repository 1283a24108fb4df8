package postback

import (
	"context"
	"time"
)

const (
	DefaultTTL = 30 * time.Minute
	DefaultCap = 20
)

// Verdict is the result of checking a postback against a user's history.
type Verdict int

const (
	Accepted Verdict = iota
	Duplicate
	// Stale is assigned after the transition check rejects an accepted postback.
	Stale
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "ACCEPTED"
	case Duplicate:
		return "DUPLICATE"
	case Stale:
		return "STALE"
	default:
		return "UNKNOWN"
	}
}

// Record is one remembered postback.
type Record struct {
	Fingerprint string    `json:"fingerprint"`
	SeenAt      time.Time `json:"seenAt"`
	StepAtTime  string    `json:"stepAtTime"`
}

// Deduplicator keeps a bounded, TTL-pruned history of postbacks per user.
type Deduplicator interface {
	CheckAndRecord(ctx context.Context, userID, fingerprint, currentStepID string, now time.Time) (Verdict, error)
	// Entries returns the live records for a user, oldest first.
	Entries(ctx context.Context, userID string, now time.Time) ([]Record, error)
	// Forget drops a user's history when their survey starts over, so the
	// same answers can be given again in the new run.
	Forget(ctx context.Context, userID string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}
