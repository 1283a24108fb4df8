package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeToEvents(t *testing.T) {
	body := `{
		"destination": "Ubot",
		"events": [
			{"type":"follow","webhookEventId":"e1","replyToken":"r1","timestamp":1700000000000,"source":{"type":"user","userId":"U1"}},
			{"type":"message","webhookEventId":"e2","replyToken":"r2","source":{"type":"user","userId":"U1"},"message":{"id":"m1","type":"text","text":"start"}},
			{"type":"postback","webhookEventId":"e3","replyToken":"r3","source":{"type":"user","userId":"U2"},"postback":{"data":"action=area&value=tokyo&next=business_status"}},
			{"type":"message","webhookEventId":"e4","source":{"type":"user","userId":"U3"},"message":{"id":"m2","type":"sticker"}}
		]
	}`
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))

	events := env.ToEvents()
	require.Len(t, events, 4)
	assert.Equal(t, TypeFollow, events[0].Type)
	assert.Equal(t, int64(1700000000000), events[0].Timestamp.UnixMilli())
	assert.Equal(t, "start", events[1].Text)
	assert.Equal(t, "U2", events[2].UserID)
	assert.Equal(t, "action=area&value=tokyo&next=business_status", events[2].PostbackData)
	assert.Empty(t, events[3].Text)
	assert.Empty(t, events[3].ReplyToken)
}
