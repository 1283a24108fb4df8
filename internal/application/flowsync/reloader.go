package flowsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/survey-hub/survey-hub/internal/domain/flow"
)

// Source is where a flow document is edited (a file, a database row).
type Source interface {
	// Version changes whenever the document does.
	Version(ctx context.Context) (string, error)
	Load(ctx context.Context) (*flow.Document, error)
}

// Reloader keeps a flow.Graph in step with its Source. A document that
// fails validation is logged and the previous graph stays in service.
// The root step is fixed for the life of the process since session stores
// are created with it.
type Reloader struct {
	source  Source
	graph   *flow.Graph
	version string
	logger  zerolog.Logger
}

// NewReloader loads the initial document and builds the graph.
func NewReloader(ctx context.Context, source Source, logger zerolog.Logger) (*Reloader, error) {
	version, err := source.Version(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	graph, err := flow.NewGraph(doc)
	if err != nil {
		return nil, err
	}
	r := &Reloader{
		source:  source,
		graph:   graph,
		version: version,
		logger:  logger.With().Str("service", "flowsync").Logger(),
	}
	for _, issue := range doc.Check() {
		r.logger.Warn().Str("flow", doc.Name).Msg(issue.String())
	}
	return r, nil
}

func (r *Reloader) Graph() *flow.Graph {
	return r.graph
}

// Refresh reloads the graph if the source changed. It reports whether a
// new version was installed.
func (r *Reloader) Refresh(ctx context.Context) (bool, error) {
	version, err := r.source.Version(ctx)
	if err != nil {
		return false, err
	}
	if version == r.version {
		return false, nil
	}
	doc, err := r.source.Load(ctx)
	if err != nil {
		return false, err
	}
	if doc.Root != r.graph.RootStepID() {
		err = fmt.Errorf("root step changed from %q to %q, restart required", r.graph.RootStepID(), doc.Root)
	} else {
		err = r.graph.Replace(doc)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("version", version).Msg("rejected flow update, keeping previous version")
		r.version = version
		return false, err
	}
	r.version = version
	for _, issue := range doc.Check() {
		r.logger.Warn().Str("flow", doc.Name).Msg(issue.String())
	}
	r.logger.Info().Str("flow", doc.Name).Str("version", version).Int("steps", r.graph.Len()).Msg("flow reloaded")
	return true, nil
}

// Run refreshes on every tick until ctx is cancelled or ticks is closed.
func (r *Reloader) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("flow refresh failed")
			}
		}
	}
}
