package riskcache

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired records from the cache. Expiry is
// still evaluated lazily at lookup time; the sweeper just keeps the store
// from accumulating dead rows between lookups.
type Sweeper struct {
	cache    *TieredCache
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

// NewSweeper creates a new expiry sweeper.
func NewSweeper(cache *TieredCache, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: 10 * time.Minute,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	purged, err := s.cache.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("failed to purge expired risk records", "error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired risk records", "count", purged)
	}
}
