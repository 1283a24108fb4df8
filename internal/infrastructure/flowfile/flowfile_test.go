package flowfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFlow = `
name: subsidy-diagnosis
root: welcome
steps:
  - id: welcome
    prompt: Find subsidies for your business
    choices:
      - label: Start
        next: area
  - id: area
    prompt: Where is your business?
    choices:
      - {label: Tokyo, value: tokyo, next: business_status}
      - {label: Osaka, value: osaka, next: business_status}
  - id: business_status
    prompt: How is business?
    choices:
      - label: Tokyo grant
        value: grant
        next: result
        when: area == "tokyo"
  - id: result
    prompt: Done
    terminal: true
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleFlow))
	require.NoError(t, err)
	assert.Equal(t, "subsidy-diagnosis", doc.Name)
	assert.Equal(t, "welcome", doc.Root)
	require.Len(t, doc.Steps, 4)
	assert.Equal(t, "business_status", doc.Steps[1].Choices[0].NextStepID)
	assert.Equal(t, `area == "tokyo"`, doc.Steps[2].Choices[0].When)
	assert.True(t, doc.Steps[3].Terminal)
	assert.Empty(t, doc.Check())
}

func TestParseJSON(t *testing.T) {
	doc, err := Parse([]byte(`{"root":"a","steps":[{"id":"a","choices":[{"label":"x","next":"b"}]},{"id":"b"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Steps[0].Choices[0].NextStepID)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("root: [unterminated"))
	assert.Error(t, err)
}

func TestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFlow), 0o644))

	src := NewSource(path)
	v1, err := src.Version(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, v1)

	doc, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "welcome", doc.Root)

	_, err = NewSource(filepath.Join(t.TempDir(), "missing.yaml")).Version(context.Background())
	assert.Error(t, err)
}
