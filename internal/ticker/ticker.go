package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Ticker periodically invokes a task until its context is cancelled. Used
// for housekeeping jobs that don't warrant their own scheduler, such as
// marking stale agent presence offline.
type Ticker struct {
	name     string
	interval time.Duration
	task     func(now time.Time)
	logger   zerolog.Logger
}

// New creates a new Ticker
func New(name string, interval time.Duration, task func(now time.Time), logger zerolog.Logger) *Ticker {
	return &Ticker{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("ticker", name).Logger(),
	}
}

// Start runs the task on every tick until the context is cancelled
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("ticker stopped")
			return

		case now := <-ticker.C:
			t.task(now)
		}
	}
}
