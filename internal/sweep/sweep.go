package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/queuewise/backend/internal/engine"
	"github.com/queuewise/backend/internal/metrics"
	"github.com/queuewise/backend/internal/qerrors"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/rs/zerolog"
)

// DefaultInterval is how often the scheduler re-scans waiting items
const DefaultInterval = 5 * time.Second

// Scheduler periodically re-attempts distribution for every WAITING item,
// applying SLA escalation first. Ticks never overlap: a tick that fires
// while the previous one is still running is skipped, not queued.
type Scheduler struct {
	store      *queuestore.Store
	engine     *engine.Engine
	collectors *metrics.Collectors
	interval   time.Duration
	busy       atomic.Bool
	logger     zerolog.Logger
}

// New creates a sweep scheduler
func New(store *queuestore.Store, eng *engine.Engine, collectors *metrics.Collectors, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:      store,
		engine:     eng,
		collectors: collectors,
		interval:   interval,
		logger:     logger.With().Str("component", "sweep").Logger(),
	}
}

// Start runs the scheduler until the context is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("sweep scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweep scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one sweep pass. Returns false when the pass was skipped
// because a previous tick is still running.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		if s.collectors != nil {
			s.collectors.SweepsSkipped.Inc()
		}
		s.logger.Debug().Msg("sweep tick skipped, previous tick still running")
		return false
	}
	defer s.busy.Store(false)

	start := time.Now()
	items := s.store.ListWaiting("")

	attempted, assigned := 0, 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		// Escalation is applied before distribution so the bumped priority
		// is visible to the selector on this same tick
		item = s.engine.RunEscalation(ctx, item)

		attempted++
		result, err := s.engine.Distribute(ctx, item.ID)
		if err != nil {
			var df *qerrors.DistributionFailure
			if errors.As(err, &df) {
				s.logger.Debug().
					Str("item_id", item.ID).
					Str("reason", df.Reason).
					Msg("item not distributed this tick")
			} else {
				s.logger.Error().Err(err).Str("item_id", item.ID).Msg("sweep distribution error")
			}
			continue
		}
		if result.Success {
			assigned++
		}
	}

	if s.collectors != nil {
		s.collectors.SweepDuration.Observe(time.Since(start).Seconds())
	}

	if attempted > 0 {
		s.logger.Debug().
			Int("waiting", len(items)).
			Int("assigned", assigned).
			Dur("duration", time.Since(start)).
			Msg("sweep tick completed")
	}
	return true
}
