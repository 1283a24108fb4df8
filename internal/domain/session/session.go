package session

import (
	"errors"
	"time"
)

// DefaultTTL is the inactivity window after which a session is discarded.
const DefaultTTL = 30 * time.Minute

var ErrNotFound = errors.New("session not found")

// Session is one user's progress through the survey.
type Session struct {
	UserID         string            `json:"userId"`
	CurrentStepID  string            `json:"currentStepId"`
	Answers        map[string]string `json:"answers"`
	DisplayName    string            `json:"displayName,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
	InFlight       bool              `json:"inFlight"`
}

// New creates a fresh session positioned at the root step.
func New(userID, rootStepID string, now time.Time) *Session {
	return &Session{
		UserID:         userID,
		CurrentStepID:  rootStepID,
		Answers:        map[string]string{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

func (s *Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivityAt) > ttl
}

// Clone returns a copy safe to hand outside a store.
func (s *Session) Clone() *Session {
	out := *s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return &out
}
