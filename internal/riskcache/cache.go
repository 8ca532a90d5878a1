package riskcache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/counttalita/ScamShield-sub000/internal/metrics"
)

// Config tunes cache capacity and expiry.
type Config struct {
	// MaxEntriesPerTier bounds each tier's stored record count.
	MaxEntriesPerTier int
	// ScamTTL is how long a scam record stays valid.
	ScamTTL time.Duration
	// SpamTTL is how long a spam record stays valid.
	SpamTTL time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntriesPerTier: 10000,
		ScamTTL:           30 * 24 * time.Hour,
		SpamTTL:           7 * 24 * time.Hour,
	}
}

// TieredCache answers risk lookups from local storage and absorbs newly
// learned verdicts. Reads fail open: a storage error is treated as a miss
// so an unavailable cache can never block a call. Write errors are logged
// and swallowed for the same reason.
type TieredCache struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

// NewTieredCache creates a cache over the given store.
func NewTieredCache(store Store, cfg Config, logger *slog.Logger) *TieredCache {
	if cfg.MaxEntriesPerTier <= 0 {
		cfg.MaxEntriesPerTier = DefaultConfig().MaxEntriesPerTier
	}
	if cfg.ScamTTL <= 0 {
		cfg.ScamTTL = DefaultConfig().ScamTTL
	}
	if cfg.SpamTTL <= 0 {
		cfg.SpamTTL = DefaultConfig().SpamTTL
	}
	return &TieredCache{store: store, cfg: cfg, logger: logger}
}

// Lookup checks the whitelist, then the scam tier, then the spam tier.
// First match wins. Expired records are treated as a miss and purged
// opportunistically.
func (c *TieredCache) Lookup(ctx context.Context, number string) LookupResult {
	now := time.Now()

	for _, tier := range Tiers {
		record, err := c.store.Get(ctx, tier, number)
		if err != nil {
			if !errors.Is(err, ErrRecordNotFound) {
				// Fail open: a broken store must never block a call.
				c.logger.Warn("cache read failed, treating as miss",
					"tier", tier, "number", number, "error", err)
			}
			continue
		}

		if record.Expired(now) {
			metrics.CacheExpiredTotal.WithLabelValues(string(tier)).Inc()
			if err := c.store.Delete(ctx, tier, number); err != nil {
				c.logger.Warn("failed to purge expired record", "tier", tier, "error", err)
			}
			continue
		}

		outcome := outcomeFor(tier)
		metrics.CacheLookupsTotal.WithLabelValues(string(outcome)).Inc()
		return LookupResult{Outcome: outcome, Record: record}
	}

	metrics.CacheLookupsTotal.WithLabelValues(string(OutcomeMiss)).Inc()
	return LookupResult{Outcome: OutcomeMiss}
}

// PutScam upserts a scam-tier record with the scam TTL.
func (c *TieredCache) PutScam(ctx context.Context, number string, level RiskLevel, confidence float64, source string) {
	c.put(ctx, TierScam, number, level, confidence, source, c.cfg.ScamTTL)
}

// PutSpam upserts a spam-tier record with the spam TTL.
func (c *TieredCache) PutSpam(ctx context.Context, number string, level RiskLevel, confidence float64, source string) {
	c.put(ctx, TierSpam, number, level, confidence, source, c.cfg.SpamTTL)
}

// AddToWhitelist upserts a whitelist record. Whitelist entries carry no
// expiry and only leave the cache when explicitly removed.
func (c *TieredCache) AddToWhitelist(ctx context.Context, number, source string) {
	c.put(ctx, TierWhitelist, number, RiskSafe, 1.0, source, 0)
}

// RemoveFromWhitelist deletes a whitelist entry.
// Returns false if the number was not whitelisted.
func (c *TieredCache) RemoveFromWhitelist(ctx context.Context, number string) bool {
	if _, err := c.store.Get(ctx, TierWhitelist, number); err != nil {
		return false
	}
	if err := c.store.Delete(ctx, TierWhitelist, number); err != nil {
		c.logger.Warn("failed to remove whitelist entry", "number", number, "error", err)
		return false
	}
	return true
}

// put upserts a record into a tier, refreshing lastUpdatedAt and expiry,
// then enforces the tier's capacity bound. All storage errors are logged
// and swallowed.
func (c *TieredCache) put(ctx context.Context, tier Tier, number string, level RiskLevel, confidence float64, source string, ttl time.Duration) {
	now := time.Now()

	record := &RiskRecord{
		Number:        number,
		RiskLevel:     level,
		Confidence:    confidence,
		Source:        source,
		ReportCount:   1,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		record.ExpiresAt = &expires
	}

	// Preserve history on upsert.
	if existing, err := c.store.Get(ctx, tier, number); err == nil {
		record.CreatedAt = existing.CreatedAt
		record.ReportCount = existing.ReportCount + 1
	}

	if err := c.store.Put(ctx, tier, record); err != nil {
		c.logger.Warn("cache write failed", "tier", tier, "number", number, "error", err)
		return
	}

	c.enforceCapacity(ctx, tier)
}

// enforceCapacity evicts the oldest 10% of a tier (by lastUpdatedAt) when
// the tier exceeds its configured maximum. Oldest-report eviction, not
// strict LRU: reads do not touch lastUpdatedAt.
func (c *TieredCache) enforceCapacity(ctx context.Context, tier Tier) {
	count, err := c.store.Count(ctx, tier)
	if err != nil {
		c.logger.Warn("cache count failed", "tier", tier, "error", err)
		return
	}
	if count <= c.cfg.MaxEntriesPerTier {
		return
	}

	evictTarget := c.cfg.MaxEntriesPerTier / 10
	if evictTarget < 1 {
		evictTarget = 1
	}

	evicted, err := c.store.DeleteOldest(ctx, tier, evictTarget)
	if err != nil {
		c.logger.Warn("cache eviction failed", "tier", tier, "error", err)
		return
	}

	metrics.CacheEvictionsTotal.WithLabelValues(string(tier)).Add(float64(evicted))
	c.logger.Info("evicted oldest cache records",
		"tier", tier, "evicted", evicted, "count", count, "max", c.cfg.MaxEntriesPerTier)
}

// PurgeExpired removes all expired records. Called by the background sweeper.
func (c *TieredCache) PurgeExpired(ctx context.Context) (int, error) {
	purged, err := c.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	total := 0
	for tier, n := range purged {
		metrics.CacheExpiredTotal.WithLabelValues(string(tier)).Add(float64(n))
		total += n
	}
	return total, nil
}

// Get returns the live record for a number in a specific tier.
func (c *TieredCache) Get(ctx context.Context, tier Tier, number string) (*RiskRecord, error) {
	record, err := c.store.Get(ctx, tier, number)
	if err != nil {
		return nil, err
	}
	if record.Expired(time.Now()) {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// TierCounts returns the stored record count per tier. Used for stats.
func (c *TieredCache) TierCounts(ctx context.Context) map[Tier]int {
	counts := make(map[Tier]int, len(Tiers))
	for _, tier := range Tiers {
		n, err := c.store.Count(ctx, tier)
		if err != nil {
			c.logger.Warn("cache count failed", "tier", tier, "error", err)
			continue
		}
		counts[tier] = n
	}
	return counts
}

func outcomeFor(tier Tier) Outcome {
	switch tier {
	case TierWhitelist:
		return OutcomeSafe
	case TierScam:
		return OutcomeScam
	default:
		return OutcomeSpam
	}
}
