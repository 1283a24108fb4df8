package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-hub/survey-hub/internal/domain/postback"
)

func TestPostbackStore_CheckAndRecord(t *testing.T) {
	ctx := context.Background()
	p := NewPostbackStore(30*time.Minute, 20)

	v, err := p.CheckAndRecord(ctx, "U1", "fp-1", "area", t0)
	require.NoError(t, err)
	assert.Equal(t, postback.Accepted, v)

	for i := 0; i < 5; i++ {
		v, err = p.CheckAndRecord(ctx, "U1", "fp-1", "business_status", t0.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, postback.Duplicate, v)
	}

	v, err = p.CheckAndRecord(ctx, "U2", "fp-1", "area", t0)
	require.NoError(t, err)
	assert.Equal(t, postback.Accepted, v, "histories are per user")

	entries, err := p.Entries(ctx, "U1", t0.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "area", entries[0].StepAtTime)
}

func TestPostbackStore_TTL(t *testing.T) {
	ctx := context.Background()
	p := NewPostbackStore(30*time.Minute, 20)
	_, err := p.CheckAndRecord(ctx, "U1", "fp-1", "area", t0)
	require.NoError(t, err)

	v, err := p.CheckAndRecord(ctx, "U1", "fp-1", "area", t0.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, postback.Accepted, v, "expired records no longer count as seen")
}

func TestPostbackStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	p := NewPostbackStore(30*time.Minute, 20)
	for i := 0; i < 25; i++ {
		v, err := p.CheckAndRecord(ctx, "U1", fmt.Sprintf("fp-%02d", i), "area", t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.Equal(t, postback.Accepted, v)
	}

	now := t0.Add(30 * time.Second)
	entries, err := p.Entries(ctx, "U1", now)
	require.NoError(t, err)
	require.Len(t, entries, 20)
	assert.Equal(t, "fp-05", entries[0].Fingerprint)
	assert.Equal(t, "fp-24", entries[19].Fingerprint)

	v, err := p.CheckAndRecord(ctx, "U1", "fp-00", "area", now)
	require.NoError(t, err)
	assert.Equal(t, postback.Accepted, v, "evicted fingerprints are forgotten")
}

func TestPostbackStore_Sweep(t *testing.T) {
	ctx := context.Background()
	p := NewPostbackStore(30*time.Minute, 20)
	_, _ = p.CheckAndRecord(ctx, "U1", "a", "area", t0)
	_, _ = p.CheckAndRecord(ctx, "U1", "b", "area", t0.Add(20*time.Minute))
	_, _ = p.CheckAndRecord(ctx, "U2", "c", "area", t0)

	removed, err := p.Sweep(ctx, t0.Add(40*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := p.Entries(ctx, "U2", t0.Add(40*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = p.Entries(ctx, "U1", t0.Add(40*time.Minute))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostbackStore_Forget(t *testing.T) {
	ctx := context.Background()
	p := NewPostbackStore(30*time.Minute, 20)
	_, _ = p.CheckAndRecord(ctx, "U1", "a", "area", t0)
	require.NoError(t, p.Forget(ctx, "U1"))

	v, err := p.CheckAndRecord(ctx, "U1", "a", "area", t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, postback.Accepted, v)
}
