package dispatch

import (
	"github.com/survey-hub/survey-hub/internal/domain/flow"
)

// Outcome classifies how an event was handled.
type Outcome string

const (
	OutcomeRendered  Outcome = "RENDERED"
	OutcomeThrottled Outcome = "THROTTLED"
	OutcomeDuplicate Outcome = "DUPLICATE"
	OutcomeStale     Outcome = "STALE"
	OutcomeBusy      Outcome = "BUSY"
	OutcomeIgnored   Outcome = "IGNORED"
	OutcomeFailed    Outcome = "FAILED"
)

// Notice is a short user-visible message sent instead of a step.
type Notice string

const (
	NoticeNone      Notice = ""
	NoticeThrottled Notice = "You're going a bit fast. Please wait a moment and try again."
	NoticeDuplicate Notice = "That answer has already been processed."
	NoticeStale     Notice = "That button is no longer active. Please use the latest message."
	NoticeRestart   Notice = "Something went wrong. Please send \"start\" to begin again."
)

// Reply is the dispatcher's answer for one event. The caller turns Step or
// Notice into a platform message; a silent reply sends nothing.
type Reply struct {
	EventID     string        `json:"eventId,omitempty"`
	UserID      string        `json:"userId"`
	ReplyToken  string        `json:"-"`
	TraceID     string        `json:"traceId"`
	Outcome     Outcome       `json:"outcome"`
	Step        *flow.Step    `json:"step,omitempty"`
	Choices     []flow.Choice `json:"choices,omitempty"`
	Notice      Notice        `json:"notice,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}

// Silent reports whether nothing should be sent back for this event.
func (r Reply) Silent() bool {
	return r.Step == nil && r.Notice == NoticeNone
}
