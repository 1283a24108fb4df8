//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-hub/survey-hub/internal/domain/flow"
	"github.com/survey-hub/survey-hub/internal/migrations"
)

func newTestRepository(t *testing.T) *FlowRepository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, RunMigrations(ctx, pool, migrations.FS))
	return NewFlowRepository(pool)
}

func TestFlowRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	name := "flow-" + uuid.NewString()

	missing, err := repo.LoadDocument(ctx, name)
	require.NoError(t, err)
	assert.Nil(t, missing)

	doc := &flow.Document{
		Name: name,
		Root: "welcome",
		Steps: []flow.Step{
			{ID: "welcome", Prompt: "Hi", Choices: []flow.Choice{{Label: "Start", NextStepID: "area"}}},
			{ID: "area", Prompt: "Where?", Choices: []flow.Choice{
				{Label: "Tokyo", Value: "tokyo", NextStepID: "done"},
				{Label: "Tokyo grant", Value: "grant", NextStepID: "done", When: `area == "tokyo"`},
			}},
			{ID: "done", Prompt: "Thanks", Terminal: true},
		},
	}
	require.NoError(t, repo.SaveDocument(ctx, doc))

	loaded, err := repo.LoadDocument(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, doc.Root, loaded.Root)
	require.Len(t, loaded.Steps, 3)
	assert.Equal(t, "welcome", loaded.Steps[0].ID)
	assert.Equal(t, doc.Steps[1].Choices, loaded.Steps[1].Choices)
	assert.True(t, loaded.Steps[2].Terminal)

	source := NewFlowSource(repo, name)
	v1, err := source.Version(ctx)
	require.NoError(t, err)

	doc.Steps[2].Prompt = "Thank you"
	require.NoError(t, repo.SaveDocument(ctx, doc))
	v2, err := source.Version(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	loaded, err = source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Thank you", loaded.Steps[2].Prompt)
}
