package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/survey-hub/survey-hub/internal/clock"
)

// DefaultInterval is how often expired sessions, rate windows and postback
// records are removed.
const DefaultInterval = 5 * time.Minute

// Sweepable is a store with time-based expiry.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Target names a store for logging.
type Target struct {
	Name  string
	Store Sweepable
}

// Sweeper periodically expires records in every target. It runs beside
// event handling and never holds a lock across targets.
type Sweeper struct {
	targets []Target
	clock   clock.Clock
	logger  zerolog.Logger
}

func NewSweeper(clk clock.Clock, logger zerolog.Logger, targets ...Target) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	return &Sweeper{
		targets: targets,
		clock:   clk,
		logger:  logger.With().Str("service", "sweeper").Logger(),
	}
}

// RunOnce sweeps every target at the current clock time and returns the
// number of records removed per target. A failing target does not stop the others.
func (s *Sweeper) RunOnce(ctx context.Context) map[string]int {
	now := s.clock.Now()
	removed := make(map[string]int, len(s.targets))
	for _, t := range s.targets {
		n, err := t.Store.Sweep(ctx, now)
		if err != nil {
			s.logger.Error().Err(err).Str("target", t.Name).Msg("sweep failed")
			continue
		}
		removed[t.Name] = n
		if n > 0 {
			s.logger.Debug().Str("target", t.Name).Int("removed", n).Msg("expired records removed")
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled or ticks is closed.
func (s *Sweeper) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			s.RunOnce(ctx)
		}
	}
}
