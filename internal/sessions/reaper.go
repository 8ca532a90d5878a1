package sessions

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically purges sessions older than MaxAge.
type Reaper struct {
	tracker  *Tracker
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

// NewReaper creates a new session reaper.
func NewReaper(tracker *Tracker, logger *slog.Logger) *Reaper {
	return &Reaper{
		tracker:  tracker,
		interval: time.Hour,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the reap loop. Call in a goroutine.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.tracker.CleanupOldSessions()
		}
	}
}

// Stop signals the reaper to stop.
func (r *Reaper) Stop() {
	select {
	case r.stop <- struct{}{}:
	default:
	}
}
