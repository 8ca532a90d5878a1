package riskcache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testCache(cfg Config) (*TieredCache, *MemoryStore) {
	store := NewMemoryStore()
	return NewTieredCache(store, cfg, slog.Default()), store
}

func TestLookup_Miss(t *testing.T) {
	cache, _ := testCache(Config{})

	result := cache.Lookup(context.Background(), "+27821234567")
	if result.Outcome != OutcomeMiss {
		t.Fatalf("expected miss, got %s", result.Outcome)
	}
	if result.Record != nil {
		t.Fatal("miss should carry no record")
	}
}

func TestLookup_ScamHit(t *testing.T) {
	cache, _ := testCache(Config{})
	ctx := context.Background()

	cache.PutScam(ctx, "+27820000666", RiskHigh, 0.9, "truecaller")

	result := cache.Lookup(ctx, "+27820000666")
	if result.Outcome != OutcomeScam {
		t.Fatalf("expected scam, got %s", result.Outcome)
	}
	if result.Record == nil || result.Record.RiskLevel != RiskHigh {
		t.Fatalf("expected high-risk record, got %+v", result.Record)
	}
	if result.Record.ExpiresAt == nil {
		t.Fatal("scam record should carry an expiry")
	}
}

func TestLookup_WhitelistPrecedence(t *testing.T) {
	cache, _ := testCache(Config{})
	ctx := context.Background()

	// Number is both whitelisted and marked as scam.
	cache.PutScam(ctx, "+27821234567", RiskHigh, 0.95, "truecaller")
	cache.AddToWhitelist(ctx, "+27821234567", "contacts")

	result := cache.Lookup(ctx, "+27821234567")
	if result.Outcome != OutcomeSafe {
		t.Fatalf("whitelist must win over scam tier, got %s", result.Outcome)
	}
}

func TestLookup_ExpiredRecordIsMiss(t *testing.T) {
	cache, store := testCache(Config{})
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	record := &RiskRecord{
		Number:        "+27820000001",
		RiskLevel:     RiskHigh,
		Confidence:    0.9,
		Source:        "truecaller",
		ReportCount:   1,
		CreatedAt:     time.Now().Add(-48 * time.Hour),
		LastUpdatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt:     &expired,
	}
	if err := store.Put(ctx, TierScam, record); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	result := cache.Lookup(ctx, "+27820000001")
	if result.Outcome != OutcomeMiss {
		t.Fatalf("expired record should be a miss, got %s", result.Outcome)
	}

	// Lookup purges opportunistically.
	if _, err := store.Get(ctx, TierScam, "+27820000001"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatal("expired record should have been purged")
	}
}

func TestLookup_WhitelistNeverExpires(t *testing.T) {
	cache, _ := testCache(Config{})
	ctx := context.Background()

	cache.AddToWhitelist(ctx, "+27821234567", "contacts")

	record, err := cache.Get(ctx, TierWhitelist, "+27821234567")
	if err != nil {
		t.Fatalf("expected whitelist record: %v", err)
	}
	if record.ExpiresAt != nil {
		t.Fatal("whitelist records must not carry an expiry")
	}
}

func TestPut_UpsertRefreshesAndCounts(t *testing.T) {
	cache, _ := testCache(Config{})
	ctx := context.Background()

	cache.PutSpam(ctx, "+27820000555", RiskMedium, 0.5, "user_report")
	first, err := cache.Get(ctx, TierSpam, "+27820000555")
	if err != nil {
		t.Fatalf("expected record: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	cache.PutSpam(ctx, "+27820000555", RiskMedium, 0.7, "user_report")

	second, err := cache.Get(ctx, TierSpam, "+27820000555")
	if err != nil {
		t.Fatalf("expected record: %v", err)
	}

	if second.ReportCount != 2 {
		t.Errorf("expected report count 2, got %d", second.ReportCount)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("upsert should preserve createdAt")
	}
	if !second.LastUpdatedAt.After(first.LastUpdatedAt) {
		t.Error("upsert should refresh lastUpdatedAt")
	}
	if second.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7, got %f", second.Confidence)
	}
}

func TestEviction_OldestFirst(t *testing.T) {
	cache, store := testCache(Config{MaxEntriesPerTier: 10})
	ctx := context.Background()

	// Fill the scam tier to capacity with staggered update times.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		record := &RiskRecord{
			Number:        number(i),
			RiskLevel:     RiskHigh,
			Confidence:    0.9,
			Source:        "seed",
			ReportCount:   1,
			CreatedAt:     base,
			LastUpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Put(ctx, TierScam, record); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	// The insert that pushes past capacity triggers eviction of the
	// oldest 10% (here: 1 record).
	cache.PutScam(ctx, "+27829999999", RiskHigh, 0.9, "truecaller")

	count, _ := store.Count(ctx, TierScam)
	if count > 10 {
		t.Fatalf("expected count at or below max after eviction, got %d", count)
	}

	// The record with the oldest lastUpdatedAt must be gone.
	if _, err := store.Get(ctx, TierScam, number(0)); !errors.Is(err, ErrRecordNotFound) {
		t.Error("oldest record should have been evicted")
	}
	// Newer seeds survive.
	if _, err := store.Get(ctx, TierScam, number(9)); err != nil {
		t.Errorf("newest seed should survive eviction: %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	cache, store := testCache(Config{})
	ctx := context.Background()

	expired := time.Now().Add(-time.Minute)
	live := time.Now().Add(time.Hour)
	_ = store.Put(ctx, TierScam, &RiskRecord{Number: "+27820000001", RiskLevel: RiskHigh, ExpiresAt: &expired})
	_ = store.Put(ctx, TierSpam, &RiskRecord{Number: "+27820000002", RiskLevel: RiskMedium, ExpiresAt: &expired})
	_ = store.Put(ctx, TierSpam, &RiskRecord{Number: "+27820000003", RiskLevel: RiskMedium, ExpiresAt: &live})

	purged, err := cache.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged, got %d", purged)
	}

	if _, err := store.Get(ctx, TierSpam, "+27820000003"); err != nil {
		t.Error("live record should survive the sweep")
	}
}

func TestRemoveFromWhitelist(t *testing.T) {
	cache, _ := testCache(Config{})
	ctx := context.Background()

	if cache.RemoveFromWhitelist(ctx, "+27821234567") {
		t.Fatal("removing an absent entry should return false")
	}

	cache.AddToWhitelist(ctx, "+27821234567", "contacts")
	if !cache.RemoveFromWhitelist(ctx, "+27821234567") {
		t.Fatal("removing a present entry should return true")
	}

	result := cache.Lookup(ctx, "+27821234567")
	if result.Outcome != OutcomeMiss {
		t.Fatalf("removed entry should be a miss, got %s", result.Outcome)
	}
}

// failingStore simulates an unavailable backing store.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (f *failingStore) Get(ctx context.Context, tier Tier, number string) (*RiskRecord, error) {
	return nil, errStoreDown
}
func (f *failingStore) Put(ctx context.Context, tier Tier, record *RiskRecord) error {
	return errStoreDown
}
func (f *failingStore) Delete(ctx context.Context, tier Tier, number string) error {
	return errStoreDown
}
func (f *failingStore) Count(ctx context.Context, tier Tier) (int, error) {
	return 0, errStoreDown
}
func (f *failingStore) DeleteOldest(ctx context.Context, tier Tier, n int) (int, error) {
	return 0, errStoreDown
}
func (f *failingStore) PurgeExpired(ctx context.Context, now time.Time) (map[Tier]int, error) {
	return nil, errStoreDown
}

func TestFailOpen_ReadErrorsAreMisses(t *testing.T) {
	cache := NewTieredCache(&failingStore{}, Config{}, slog.Default())

	result := cache.Lookup(context.Background(), "+27821234567")
	if result.Outcome != OutcomeMiss {
		t.Fatalf("store failure must degrade to miss, got %s", result.Outcome)
	}
}

func TestFailOpen_WriteErrorsAreSwallowed(t *testing.T) {
	cache := NewTieredCache(&failingStore{}, Config{}, slog.Default())

	// Must not panic or propagate.
	cache.PutScam(context.Background(), "+27821234567", RiskHigh, 0.9, "truecaller")
	cache.AddToWhitelist(context.Background(), "+27821234567", "contacts")
}

func TestRiskLevelOrdinal(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  int
	}{
		{RiskHigh, 3},
		{RiskMedium, 2},
		{RiskLow, 1},
		{RiskUnknown, 0},
		{RiskSafe, 0},
	}
	for _, tt := range tests {
		if got := tt.level.Ordinal(); got != tt.want {
			t.Errorf("Ordinal(%s) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func number(i int) string {
	return "+2782000" + string(rune('0'+i/10)) + string(rune('0'+i%10)) + "00"
}
