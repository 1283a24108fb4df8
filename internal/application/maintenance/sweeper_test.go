package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-hub/survey-hub/internal/clock"
	"github.com/survey-hub/survey-hub/internal/infrastructure/memory"
)

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type failingStore struct{}

func (failingStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, errors.New("backend unavailable")
}

func newStores(t *testing.T) (*memory.SessionStore, *memory.RateLimiter, *memory.PostbackStore) {
	t.Helper()
	ctx := context.Background()
	sessions := memory.NewSessionStore("welcome", 30*time.Minute)
	limiter := memory.NewRateLimiter(10*time.Second, 3)
	postbacks := memory.NewPostbackStore(30*time.Minute, 20)

	_, err := sessions.GetOrCreate(ctx, "U1", t0)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "U1", t0)
	require.NoError(t, err)
	_, err = postbacks.CheckAndRecord(ctx, "U1", "fp", "welcome", t0)
	require.NoError(t, err)
	return sessions, limiter, postbacks
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	sessions, limiter, postbacks := newStores(t)
	clk := clock.NewFake(t0.Add(time.Minute))
	s := NewSweeper(clk, zerolog.Nop(),
		Target{Name: "sessions", Store: sessions},
		Target{Name: "ratelimit", Store: limiter},
		Target{Name: "postbacks", Store: postbacks},
		Target{Name: "broken", Store: failingStore{}},
	)

	removed := s.RunOnce(ctx)
	assert.Equal(t, map[string]int{"sessions": 0, "ratelimit": 1, "postbacks": 0}, removed)

	clk.Advance(30 * time.Minute)
	removed = s.RunOnce(ctx)
	assert.Equal(t, 1, removed["sessions"])
	assert.Equal(t, 1, removed["postbacks"])
	assert.Equal(t, 0, sessions.Len())
	assert.Equal(t, 0, limiter.Len())
}

func TestSweeper_RunDrivenByTicks(t *testing.T) {
	sessions, _, _ := newStores(t)
	clk := clock.NewFake(t0.Add(time.Hour))
	s := NewSweeper(clk, zerolog.Nop(), Target{Name: "sessions", Store: sessions})

	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), ticks)
		close(done)
	}()

	ticks <- clk.Now()
	close(ticks)
	<-done
	assert.Equal(t, 0, sessions.Len())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(nil, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, make(chan time.Time))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
