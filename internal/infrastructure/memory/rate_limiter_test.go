package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(10*time.Second, 3)

	for i := 1; i <= 3; i++ {
		ok, err := l.Allow(ctx, "U1", t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
	}
	ok, err := l.Allow(ctx, "U1", t0.Add(4*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	// other users are independent
	ok, err = l.Allow(ctx, "U2", t0.Add(4*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	// window started at t0+1s, so it ends at t0+11s
	ok, err = l.Allow(ctx, "U1", t0.Add(11*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "U1", t0.Add(11*time.Second+time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_HammeringDoesNotExtendWindow(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(10*time.Second, 3)
	for i := 0; i < 50; i++ {
		_, err := l.Allow(ctx, "U1", t0.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(t, err)
	}
	ok, err := l.Allow(ctx, "U1", t0.Add(10*time.Second+time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_Sweep(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(10*time.Second, 3)
	_, _ = l.Allow(ctx, "U1", t0)
	_, _ = l.Allow(ctx, "U2", t0.Add(8*time.Second))

	removed, err := l.Sweep(ctx, t0.Add(12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
}
