package reply

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-hub/survey-hub/internal/application/dispatch"
	"github.com/survey-hub/survey-hub/internal/domain/flow"
)

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(zerolog.New(&buf))

	err := sender.Send(context.Background(), dispatch.Reply{
		UserID:  "U1",
		TraceID: "t-1",
		Outcome: dispatch.OutcomeRendered,
		Step:    &flow.Step{ID: "area", Prompt: "Where do you live?"},
		Choices: []flow.Choice{{Label: "Tokyo"}, {Label: "Osaka"}},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `"step":"area"`)
	assert.Contains(t, out, `"choices":["Tokyo","Osaka"]`)
	assert.NotContains(t, out, "notice")

	buf.Reset()
	require.NoError(t, sender.Send(context.Background(), dispatch.Reply{UserID: "U1", Outcome: dispatch.OutcomeStale, Notice: dispatch.NoticeStale}))
	assert.Contains(t, buf.String(), `"outcome":"STALE"`)
	assert.Contains(t, buf.String(), "no longer active")
}
