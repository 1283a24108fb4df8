package event

import "time"

// Type is the kind of inbound chat-platform event.
type Type string

const (
	TypeMessage  Type = "message"
	TypePostback Type = "postback"
	TypeFollow   Type = "follow"
	TypeUnfollow Type = "unfollow"
)

// Event is one decoded inbound event.
type Event struct {
	ID           string
	Type         Type
	UserID       string
	ReplyToken   string
	Text         string
	PostbackData string
	Timestamp    time.Time
}

// Envelope is the webhook request body as sent by the chat platform.
type Envelope struct {
	Destination string      `json:"destination"`
	Events      []WireEvent `json:"events"`
}

// WireEvent mirrors the platform's JSON for a single event.
type WireEvent struct {
	Type           string        `json:"type"`
	WebhookEventID string        `json:"webhookEventId"`
	ReplyToken     string        `json:"replyToken"`
	Timestamp      int64         `json:"timestamp"`
	Source         WireSource    `json:"source"`
	Message        *WireMessage  `json:"message,omitempty"`
	Postback       *WirePostback `json:"postback,omitempty"`
}

type WireSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type WireMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type WirePostback struct {
	Data string `json:"data"`
}

// ToEvents converts the envelope into domain events. Event types the engine
// does not handle are kept with their raw type so the dispatcher can ignore them.
func (e *Envelope) ToEvents() []Event {
	out := make([]Event, 0, len(e.Events))
	for _, w := range e.Events {
		ev := Event{
			ID:         w.WebhookEventID,
			Type:       Type(w.Type),
			UserID:     w.Source.UserID,
			ReplyToken: w.ReplyToken,
		}
		if w.Timestamp > 0 {
			ev.Timestamp = time.UnixMilli(w.Timestamp).UTC()
		}
		if w.Message != nil && w.Message.Type == "text" {
			ev.Text = w.Message.Text
		}
		if w.Postback != nil {
			ev.PostbackData = w.Postback.Data
		}
		out = append(out, ev)
	}
	return out
}
