package flow

import (
	"context"
	"fmt"
	"sync"
)

// Graph is an in-memory Store. It can be swapped atomically when the
// flow is edited, so readers always see one consistent version.
type Graph struct {
	mu    sync.RWMutex
	name  string
	root  string
	steps map[string]*Step
}

// NewGraph builds a Graph from a document, rejecting it on fatal issues.
func NewGraph(doc *Document) (*Graph, error) {
	g := &Graph{}
	if err := g.Replace(doc); err != nil {
		return nil, err
	}
	return g, nil
}

// Replace installs a new version of the flow.
func (g *Graph) Replace(doc *Document) error {
	if doc == nil {
		return ErrEmptyGraph
	}
	if err := FatalIssues(doc.Check()); err != nil {
		return fmt.Errorf("invalid flow %q: %w", doc.Name, err)
	}
	steps := make(map[string]*Step, len(doc.Steps))
	for i := range doc.Steps {
		s := doc.Steps[i]
		steps[s.ID] = s.Clone()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = doc.Name
	g.root = doc.Root
	g.steps = steps
	return nil
}

func (g *Graph) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

func (g *Graph) RootStepID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.root
}

func (g *Graph) GetStep(_ context.Context, stepID string) (*Step, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.steps[stepID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	return s.Clone(), nil
}

func (g *Graph) ListChoices(ctx context.Context, stepID string) ([]Choice, error) {
	s, err := g.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	return s.Choices, nil
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.steps)
}
