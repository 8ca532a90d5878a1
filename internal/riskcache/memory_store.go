package riskcache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory risk record store for demo/development mode.
type MemoryStore struct {
	tiers map[Tier]map[string]*RiskRecord
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory risk record store.
func NewMemoryStore() *MemoryStore {
	tiers := make(map[Tier]map[string]*RiskRecord, len(Tiers))
	for _, tier := range Tiers {
		tiers[tier] = make(map[string]*RiskRecord)
	}
	return &MemoryStore{tiers: tiers}
}

func (m *MemoryStore) Get(ctx context.Context, tier Tier, number string) (*RiskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.tiers[tier]
	if !ok {
		return nil, ErrUnknownTier
	}
	record, ok := records[number]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *record
	return &cp, nil
}

func (m *MemoryStore) Put(ctx context.Context, tier Tier, record *RiskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.tiers[tier]
	if !ok {
		return ErrUnknownTier
	}
	cp := *record
	records[record.Number] = &cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, tier Tier, number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.tiers[tier]
	if !ok {
		return ErrUnknownTier
	}
	delete(records, number)
	return nil
}

func (m *MemoryStore) Count(ctx context.Context, tier Tier) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.tiers[tier]
	if !ok {
		return 0, ErrUnknownTier
	}
	return len(records), nil
}

func (m *MemoryStore) DeleteOldest(ctx context.Context, tier Tier, n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.tiers[tier]
	if !ok {
		return 0, ErrUnknownTier
	}
	if n <= 0 || len(records) == 0 {
		return 0, nil
	}

	ordered := make([]*RiskRecord, 0, len(records))
	for _, record := range records {
		ordered = append(ordered, record)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastUpdatedAt.Before(ordered[j].LastUpdatedAt)
	})

	if n > len(ordered) {
		n = len(ordered)
	}
	for _, record := range ordered[:n] {
		delete(records, record.Number)
	}
	return n, nil
}

func (m *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (map[Tier]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := make(map[Tier]int, len(Tiers))
	for tier, records := range m.tiers {
		for number, record := range records {
			if record.Expired(now) {
				delete(records, number)
				purged[tier]++
			}
		}
	}
	return purged, nil
}
