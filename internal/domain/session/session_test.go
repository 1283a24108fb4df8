package session

import (
	"testing"
	"time"
)

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s := New("U1", "welcome", now)
	if s.IsExpired(now.Add(DefaultTTL), DefaultTTL) {
		t.Fatal("session at exactly TTL must still be live")
	}
	if !s.IsExpired(now.Add(DefaultTTL+time.Second), DefaultTTL) {
		t.Fatal("expected session to be expired")
	}
}

func TestSessionClone(t *testing.T) {
	s := New("U1", "welcome", time.Now())
	s.Answers["area"] = "tokyo"
	c := s.Clone()
	c.Answers["area"] = "osaka"
	if s.Answers["area"] != "tokyo" {
		t.Fatalf("clone shares answers map: %v", s.Answers)
	}
}
