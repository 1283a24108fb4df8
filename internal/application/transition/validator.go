package transition

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/survey-hub/survey-hub/internal/domain/flow"
)

// Validator decides whether a requested step change is reachable from the
// user's current step. Buttons rendered for an earlier step stop working
// once the session has moved on.
type Validator struct {
	store  flow.Store
	logger zerolog.Logger
}

func NewValidator(store flow.Store, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  store,
		logger: logger.With().Str("service", "transition").Logger(),
	}
}

// Validate reports whether requestedNextStepID is a legal move.
// Restart is valid from anywhere. A user at the root step may proceed to
// any step of the graph, since first contact never holds stale buttons.
// Otherwise the target must be offered by the current step for the given
// answers. Unknown current steps and targets fail closed.
func (v *Validator) Validate(ctx context.Context, currentStepID, requestedNextStepID string, restart bool, answers map[string]string) bool {
	if restart {
		return true
	}
	if requestedNextStepID == "" {
		return false
	}

	current, err := v.store.GetStep(ctx, currentStepID)
	if err != nil {
		v.logStoreError(err, currentStepID, "current step missing from flow graph")
		return false
	}

	if currentStepID != v.store.RootStepID() && !current.Offers(requestedNextStepID, answers) {
		return false
	}

	// dangling references are terminal
	if _, err := v.store.GetStep(ctx, requestedNextStepID); err != nil {
		v.logStoreError(err, requestedNextStepID, "choice points to a step missing from flow graph")
		return false
	}
	return true
}

func (v *Validator) logStoreError(err error, stepID, msg string) {
	if errors.Is(err, flow.ErrStepNotFound) {
		v.logger.Warn().Str("step", stepID).Msg(msg)
		return
	}
	v.logger.Error().Err(err).Str("step", stepID).Msg("flow store lookup failed")
}
