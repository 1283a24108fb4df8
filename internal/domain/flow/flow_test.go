package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		Name: "diagnosis",
		Root: "welcome",
		Steps: []Step{
			{ID: "welcome", Prompt: "Start?", Choices: []Choice{{Label: "Go", NextStepID: "area"}}},
			{ID: "area", Prompt: "Where?", Choices: []Choice{
				{Label: "Tokyo", Value: "tokyo", NextStepID: "business_status"},
				{Label: "Osaka", Value: "osaka", NextStepID: "business_status"},
			}},
			{ID: "business_status", Prompt: "Status?", Choices: []Choice{
				{Label: "Profitable", Value: "profit", NextStepID: "employees"},
				{Label: "Tokyo only", Value: "special", NextStepID: "result_special", When: `area == "tokyo"`},
			}},
			{ID: "employees", Prompt: "How many?", Choices: []Choice{{Label: "10+", Value: "10", NextStepID: "result_2000"}}},
			{ID: "result_special", Prompt: "Special", Terminal: true},
			{ID: "result_2000", Prompt: "Result", Terminal: true},
		},
	}
}

func TestNewGraph(t *testing.T) {
	g, err := NewGraph(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "welcome", g.RootStepID())
	assert.Equal(t, 6, g.Len())

	step, err := g.GetStep(context.Background(), "area")
	require.NoError(t, err)
	assert.Len(t, step.Choices, 2)

	step.Choices[0].NextStepID = "mutated"
	again, err := g.GetStep(context.Background(), "area")
	require.NoError(t, err)
	assert.Equal(t, "business_status", again.Choices[0].NextStepID)
}

func TestGraphGetStepNotFound(t *testing.T) {
	g, err := NewGraph(sampleDocument())
	require.NoError(t, err)
	_, err = g.GetStep(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrStepNotFound))
	_, err = g.ListChoices(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrStepNotFound))
}

func TestDocumentCheck(t *testing.T) {
	doc := sampleDocument()
	assert.Empty(t, doc.Check())

	doc.Steps = append(doc.Steps, Step{ID: "area"})
	doc.Steps[0].Choices = append(doc.Steps[0].Choices, Choice{Label: "Lost", NextStepID: "nowhere"})
	issues := doc.Check()
	require.Len(t, issues, 2)
	assert.True(t, issues[0].Fatal)
	assert.False(t, issues[1].Fatal)
	assert.Error(t, FatalIssues(issues))
}

func TestDocumentCheckMissingRoot(t *testing.T) {
	doc := sampleDocument()
	doc.Root = "intro"
	_, err := NewGraph(doc)
	assert.Error(t, err)
}

func TestDocumentCheckBadCondition(t *testing.T) {
	doc := sampleDocument()
	doc.Steps[1].Choices[0].When = "area == ("
	assert.Error(t, FatalIssues(doc.Check()))
}

func TestStepOffered(t *testing.T) {
	g, err := NewGraph(sampleDocument())
	require.NoError(t, err)
	step, err := g.GetStep(context.Background(), "business_status")
	require.NoError(t, err)

	assert.Len(t, step.Offered(map[string]string{"area": "tokyo"}), 2)
	assert.Len(t, step.Offered(map[string]string{"area": "osaka"}), 1)
	assert.Len(t, step.Offered(nil), 1)
	assert.True(t, step.Offers("result_special", map[string]string{"area": "tokyo"}))
	assert.False(t, step.Offers("result_special", map[string]string{"area": "osaka"}))
}

func TestEvaluateWhen(t *testing.T) {
	ok, err := EvaluateWhen("", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateWhen("FALSE", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvaluateWhen("employees >= 10", map[string]string{"employees": "12"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateWhen(`profit == "high" && area == "tokyo"`, map[string]string{"profit": "high"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = EvaluateWhen("area + 1", map[string]string{"area": "x"})
	assert.Error(t, err)
}
