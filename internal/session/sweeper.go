package session

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the store's expired-session cleanup on a cron schedule.
type Sweeper struct {
	cron  *cron.Cron
	store *Store
}

// NewSweeper schedules CleanupExpired on the given cron spec, for example
// "@every 10m". The returned Sweeper is not running until Start.
func NewSweeper(store *Store, schedule string, logger *slog.Logger) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		store.CleanupExpired()
	})
	if err != nil {
		return nil, err
	}
	logger.Info("session sweeper scheduled", "schedule", schedule)
	return &Sweeper{cron: c, store: store}, nil
}

// Start begins running the schedule in its own goroutine.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop stops the schedule. Running sweeps finish.
func (s *Sweeper) Stop() { s.cron.Stop() }
