package redisstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserKeySharesHashTag(t *testing.T) {
	assert.Equal(t, "survey:{U1}:session", userKey("U1", "session"))
	assert.Equal(t, "survey:{U1}:inflight", userKey("U1", "inflight"))
}

func TestToStringMap(t *testing.T) {
	got := toStringMap([]interface{}{"step", "area", "name", "Aiko", "dangling"})
	assert.Equal(t, map[string]string{"step": "area", "name": "Aiko"}, got)
	assert.Empty(t, toStringMap(nil))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)
	_, err = NewClient(context.Background(), "http://not-redis")
	assert.Error(t, err)
}
