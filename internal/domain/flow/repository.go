package flow

import "context"

// Store is the read-mostly lookup of survey steps.
type Store interface {
	RootStepID() string
	GetStep(ctx context.Context, stepID string) (*Step, error)
	ListChoices(ctx context.Context, stepID string) ([]Choice, error)
}
