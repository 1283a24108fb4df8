package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/survey-hub/survey-hub/internal/application/transition"
	"github.com/survey-hub/survey-hub/internal/clock"
	"github.com/survey-hub/survey-hub/internal/domain/event"
	"github.com/survey-hub/survey-hub/internal/domain/flow"
	"github.com/survey-hub/survey-hub/internal/domain/postback"
	"github.com/survey-hub/survey-hub/internal/domain/profile"
	"github.com/survey-hub/survey-hub/internal/domain/ratelimit"
	"github.com/survey-hub/survey-hub/internal/domain/session"
)

// DefaultTriggerKeywords start the survey over when found in message text.
var DefaultTriggerKeywords = []string{"start", "診断", "restart"}

// Dispatcher drives one inbound event through rate limiting, session
// lookup, replay detection and transition checks, and decides what to render.
type Dispatcher struct {
	limiter   ratelimit.Limiter
	sessions  session.Store
	postbacks postback.Deduplicator
	validator *transition.Validator
	flow      flow.Store
	profiles  profile.Resolver
	guestName string
	clock     clock.Clock
	triggers  []string
	logger    zerolog.Logger
}

// NewDispatcher creates a dispatcher. A nil clock uses the wall clock,
// empty triggers use DefaultTriggerKeywords and an empty guestName uses
// profile.PlaceholderName.
func NewDispatcher(
	limiter ratelimit.Limiter,
	sessions session.Store,
	postbacks postback.Deduplicator,
	validator *transition.Validator,
	flowStore flow.Store,
	profiles profile.Resolver,
	guestName string,
	clk clock.Clock,
	triggers []string,
	logger zerolog.Logger,
) *Dispatcher {
	if clk == nil {
		clk = clock.System{}
	}
	if len(triggers) == 0 {
		triggers = DefaultTriggerKeywords
	}
	normalized := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	if guestName = strings.TrimSpace(guestName); guestName == "" {
		guestName = profile.PlaceholderName
	}
	if profiles == nil {
		profiles = profile.Static(guestName)
	}
	return &Dispatcher{
		limiter:   limiter,
		sessions:  sessions,
		postbacks: postbacks,
		validator: validator,
		flow:      flowStore,
		profiles:  profiles,
		guestName: guestName,
		clock:     clk,
		triggers:  normalized,
		logger:    logger.With().Str("service", "dispatch").Logger(),
	}
}

// HandleAll handles a webhook batch. Events of one user run in order;
// different users run in parallel. Replies keep the input order.
func (d *Dispatcher) HandleAll(ctx context.Context, events []event.Event) []Reply {
	replies := make([]Reply, len(events))
	byUser := make(map[string][]int)
	order := make([]string, 0)
	for i, ev := range events {
		if _, ok := byUser[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], i)
	}

	var wg sync.WaitGroup
	for _, userID := range order {
		idx := byUser[userID]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, i := range idx {
				replies[i] = d.Handle(ctx, events[i])
			}
		}()
	}
	wg.Wait()
	return replies
}

// Handle processes one event. It never panics and never returns an error:
// every failure becomes a reply the caller can act on.
func (d *Dispatcher) Handle(ctx context.Context, ev event.Event) (reply Reply) {
	reply = Reply{
		EventID:    ev.ID,
		UserID:     ev.UserID,
		ReplyToken: ev.ReplyToken,
		TraceID:    uuid.NewString(),
		Outcome:    OutcomeIgnored,
	}
	logger := d.logger.With().
		Str("traceId", reply.TraceID).
		Str("userId", ev.UserID).
		Str("eventType", string(ev.Type)).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			logger.Error().
				Str("panic", fmt.Sprint(p)).
				Bytes("stack", debug.Stack()).
				Msg("event handling panicked")
			reply = d.failed(reply)
		}
	}()

	if ev.UserID == "" {
		logger.Debug().Msg("event without user id ignored")
		return reply
	}
	switch ev.Type {
	case event.TypeMessage, event.TypePostback, event.TypeFollow:
	default:
		logger.Debug().Msg("unhandled event type ignored")
		return reply
	}

	now := d.clock.Now()
	allowed, err := d.limiter.Allow(ctx, ev.UserID, now)
	if err != nil {
		// the limiter is advisory; a backend outage must not block users
		logger.Warn().Err(err).Msg("rate limiter unavailable, allowing event")
		allowed = true
	}
	if !allowed {
		logger.Info().Msg("event throttled")
		reply.Outcome = OutcomeThrottled
		reply.Notice = NoticeThrottled
		return reply
	}

	sess, err := d.sessions.GetOrCreate(ctx, ev.UserID, now)
	if err != nil {
		logger.Error().Err(err).Msg("session lookup failed")
		return d.failed(reply)
	}
	reply.DisplayName = d.ensureDisplayName(ctx, sess, logger)
	logger = logger.With().Str("step", sess.CurrentStepID).Logger()

	switch ev.Type {
	case event.TypeFollow:
		return d.restart(ctx, ev.UserID, reply, logger)
	case event.TypeMessage:
		return d.handleMessage(ctx, ev, sess, reply, logger)
	default:
		return d.handlePostback(ctx, ev, reply, logger)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, ev event.Event, sess *session.Session, reply Reply, logger zerolog.Logger) Reply {
	if d.isTrigger(ev.Text) {
		return d.restart(ctx, ev.UserID, reply, logger)
	}
	step, err := d.flow.GetStep(ctx, sess.CurrentStepID)
	if errors.Is(err, flow.ErrStepNotFound) {
		logger.Warn().Msg("data integrity: session step missing from flow graph, resetting to root")
		return d.restart(ctx, ev.UserID, reply, logger)
	}
	if err != nil {
		logger.Error().Err(err).Msg("flow lookup failed")
		return d.failed(reply)
	}
	return d.rendered(reply, step, sess.Answers)
}

func (d *Dispatcher) handlePostback(ctx context.Context, ev event.Event, reply Reply, logger zerolog.Logger) Reply {
	payload, err := postback.ParsePayload(ev.PostbackData)
	if err != nil {
		logger.Warn().Err(err).Str("data", ev.PostbackData).Msg("postback ignored")
		return reply
	}
	if u, ok := payload.Action.(postback.Unknown); ok {
		logger.Warn().Str("action", u.Tag).Str("data", ev.PostbackData).Msg("postback without usable action ignored")
		return reply
	}

	return d.guarded(ctx, ev.UserID, reply, logger, func() Reply {
		now := d.clock.Now()
		// re-read under the guard; another event may have moved the session
		sess, err := d.sessions.GetOrCreate(ctx, ev.UserID, now)
		if err != nil {
			logger.Error().Err(err).Msg("session lookup failed")
			return d.failed(reply)
		}

		verdict, err := d.postbacks.CheckAndRecord(ctx, ev.UserID, payload.Fingerprint(), sess.CurrentStepID, now)
		if err != nil {
			logger.Error().Err(err).Msg("postback history unavailable")
			return d.failed(reply)
		}
		if verdict == postback.Duplicate {
			logger.Info().Str("verdict", verdict.String()).Msg("duplicate postback")
			reply.Outcome = OutcomeDuplicate
			reply.Notice = NoticeDuplicate
			return reply
		}

		_, restart := payload.Action.(postback.Restart)
		if !d.validator.Validate(ctx, sess.CurrentStepID, payload.Next, restart, sess.Answers) {
			logger.Info().
				Str("verdict", postback.Stale.String()).
				Str("next", payload.Next).
				Msg("stale transition rejected")
			reply.Outcome = OutcomeStale
			reply.Notice = NoticeStale
			return reply
		}
		if restart {
			return d.resetAndRender(ctx, ev.UserID, reply, logger)
		}

		next, err := d.flow.GetStep(ctx, payload.Next)
		if err != nil {
			logger.Warn().Err(err).Str("next", payload.Next).Msg("data integrity: validated step vanished, rendering root")
			return d.renderRoot(ctx, reply, logger)
		}

		answers := sess.Answers
		if answers == nil {
			answers = map[string]string{}
		}
		if a, ok := payload.Action.(postback.Answer); ok && a.Value != "" {
			if err := d.sessions.RecordAnswer(ctx, ev.UserID, a.Key, a.Value); err != nil {
				return d.storeFault(err, reply, logger)
			}
			answers[a.Key] = a.Value
		}
		if err := d.sessions.Advance(ctx, ev.UserID, next.ID); err != nil {
			return d.storeFault(err, reply, logger)
		}
		logger.Info().Str("next", next.ID).Msg("session advanced")
		return d.rendered(reply, next, answers)
	})
}

// restart resets the session to the root step under the in-flight guard.
func (d *Dispatcher) restart(ctx context.Context, userID string, reply Reply, logger zerolog.Logger) Reply {
	return d.guarded(ctx, userID, reply, logger, func() Reply {
		return d.resetAndRender(ctx, userID, reply, logger)
	})
}

func (d *Dispatcher) resetAndRender(ctx context.Context, userID string, reply Reply, logger zerolog.Logger) Reply {
	if err := d.sessions.Reset(ctx, userID, d.clock.Now()); err != nil {
		return d.storeFault(err, reply, logger)
	}
	if err := d.postbacks.Forget(ctx, userID); err != nil {
		logger.Warn().Err(err).Msg("could not clear postback history")
	}
	logger.Info().Msg("session reset to root")
	return d.renderRoot(ctx, reply, logger)
}

// guarded runs fn while holding the user's in-flight guard. A concurrent
// event for the same user is dropped silently rather than queued.
func (d *Dispatcher) guarded(ctx context.Context, userID string, reply Reply, logger zerolog.Logger, fn func() Reply) Reply {
	acquired, err := d.sessions.TrySetInFlight(ctx, userID)
	if err != nil {
		return d.storeFault(err, reply, logger)
	}
	if !acquired {
		logger.Info().Msg("concurrent event for user dropped")
		reply.Outcome = OutcomeBusy
		return reply
	}
	defer func() {
		if err := d.sessions.ClearInFlight(context.WithoutCancel(ctx), userID); err != nil {
			logger.Error().Err(err).Msg("failed to release in-flight guard")
		}
	}()
	return fn()
}

func (d *Dispatcher) renderRoot(ctx context.Context, reply Reply, logger zerolog.Logger) Reply {
	root, err := d.flow.GetStep(ctx, d.flow.RootStepID())
	if err != nil {
		logger.Error().Err(err).Str("root", d.flow.RootStepID()).Msg("data integrity: root step unavailable")
		return d.failed(reply)
	}
	return d.rendered(reply, root, nil)
}

func (d *Dispatcher) rendered(reply Reply, step *flow.Step, answers map[string]string) Reply {
	reply.Outcome = OutcomeRendered
	reply.Step = step
	reply.Choices = step.Offered(answers)
	reply.Notice = NoticeNone
	return reply
}

func (d *Dispatcher) failed(reply Reply) Reply {
	reply.Outcome = OutcomeFailed
	reply.Step = nil
	reply.Choices = nil
	reply.Notice = NoticeRestart
	return reply
}

// storeFault handles a session store error inside an event. ErrNotFound
// after GetOrCreate is a programming error, not a user condition.
func (d *Dispatcher) storeFault(err error, reply Reply, logger zerolog.Logger) Reply {
	if errors.Is(err, session.ErrNotFound) {
		logger.Error().Err(err).Msg("BUG: session vanished after GetOrCreate")
	} else {
		logger.Error().Err(err).Msg("session store failed")
	}
	return d.failed(reply)
}

// ensureDisplayName resolves the user's name once per session. It runs
// before the in-flight guard is taken so network latency never holds it.
func (d *Dispatcher) ensureDisplayName(ctx context.Context, sess *session.Session, logger zerolog.Logger) string {
	if sess.DisplayName != "" {
		return sess.DisplayName
	}
	name, err := d.profiles.ResolveDisplayName(ctx, sess.UserID)
	name = strings.TrimSpace(name)
	if err != nil || name == "" {
		if err != nil {
			logger.Warn().Err(err).Msg("display name lookup failed, using placeholder")
		}
		return d.guestName
	}
	if name == d.guestName {
		// a placeholder is never cached so a later lookup can still succeed
		return name
	}
	if err := d.sessions.SetDisplayName(ctx, sess.UserID, name); err != nil {
		logger.Warn().Err(err).Msg("could not cache display name")
	}
	return name
}

func (d *Dispatcher) isTrigger(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, kw := range d.triggers {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
