package lineapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v2/bot/profile/U1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"userId":"U1","displayName":"Aiko"}`))
		case "/v2/bot/profile/U2":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}
	}))
	defer srv.Close()

	client := NewProfileClient(srv.URL+"/", "secret-token", time.Second)
	ctx := context.Background()

	name, err := client.ResolveDisplayName(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Aiko", name)

	_, err = client.ResolveDisplayName(ctx, "U2")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	_, err = client.ResolveDisplayName(ctx, "U3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
