package store

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes expired records and reports how many went.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Reaper periodically purges expired codes and tokens from a persistent
// store. The buntdb and Valkey stores expire keys on their own and need no reaper.
type Reaper struct {
	Store    Purger
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReaper creates a reaper. A non-positive interval defaults to 10 minutes.
func NewReaper(p Purger, logger *slog.Logger, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		Store:    p,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the purge loop in the background until Stop is called.
func (r *Reaper) Start() {
	go r.run()
	r.Logger.Info("token reaper started", "interval", r.Interval)
}

// Stop blocks until an in-progress purge has finished.
func (r *Reaper) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("token reaper stopped")
}

func (r *Reaper) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.purge()
	for {
		select {
		case <-ticker.C:
			r.purge()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reaper) purge() {
	n, err := r.Store.PurgeExpired(context.Background())
	if err != nil {
		r.Logger.Error("failed to purge expired tokens", "error", err)
		return
	}
	r.Logger.Debug("purged expired tokens", "deleted", n)
}
