package reply

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/survey-hub/survey-hub/internal/application/dispatch"
)

// Sender delivers a dispatcher reply to the user.
type Sender interface {
	Send(ctx context.Context, r dispatch.Reply) error
}

// LogSender records replies instead of sending them. It stands in for the
// platform client in development.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("service", "reply").Logger()}
}

func (s *LogSender) Send(_ context.Context, r dispatch.Reply) error {
	evt := s.logger.Info().
		Str("user_id", r.UserID).
		Str("trace_id", r.TraceID).
		Str("outcome", string(r.Outcome))
	if r.Step != nil {
		labels := make([]string, 0, len(r.Choices))
		for _, c := range r.Choices {
			labels = append(labels, c.Label)
		}
		evt = evt.Str("step", r.Step.ID).Str("prompt", r.Step.Prompt).Strs("choices", labels)
	}
	if r.Notice != dispatch.NoticeNone {
		evt = evt.Str("notice", string(r.Notice))
	}
	evt.Msg("reply")
	return nil
}
