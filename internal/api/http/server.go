package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/survey-hub/survey-hub/internal/application/dispatch"
	"github.com/survey-hub/survey-hub/internal/domain/event"
	"github.com/survey-hub/survey-hub/internal/infrastructure/reply"
)

const maxBodyBytes = 1 << 20

// EventHandler dispatches a decoded webhook batch.
type EventHandler interface {
	HandleAll(ctx context.Context, events []event.Event) []dispatch.Reply
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server holds dependencies for HTTP handlers.
type Server struct {
	handler       EventHandler
	sender        reply.Sender
	channelSecret string
	checks        map[string]HealthCheck
	logger        zerolog.Logger
}

// NewServer wires the webhook endpoint. An empty channelSecret disables
// signature verification.
func NewServer(handler EventHandler, sender reply.Sender, channelSecret string, checks map[string]HealthCheck, logger zerolog.Logger) *Server {
	return &Server{
		handler:       handler,
		sender:        sender,
		channelSecret: channelSecret,
		checks:        checks,
		logger:        logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.health)
	r.With(s.requireSignature).Post("/webhook", s.webhook)
	return r
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	var env event.Envelope
	if err := decodeBody(r, &env); err != nil {
		// the platform retries non-2xx responses, so a bad body is acknowledged and dropped
		s.logger.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("undecodable webhook body")
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ignored"})
		return
	}
	events := env.ToEvents()
	replies := s.handler.HandleAll(r.Context(), events)
	sent := 0
	for _, rep := range replies {
		if rep.Silent() {
			continue
		}
		if err := s.sender.Send(r.Context(), rep); err != nil {
			s.logger.Error().Err(err).Str("trace_id", rep.TraceID).Str("user_id", rep.UserID).Msg("send reply")
			continue
		}
		sent++
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"events":  len(events),
		"replies": sent,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	body := map[string]interface{}{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	respondJSON(w, status, body)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after body")
	}
	return nil
}
