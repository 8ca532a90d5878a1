package decision

import (
	"context"
	"database/sql"
	"sync"
)

// MemoryCounterStore is an in-memory counter store for demo/development mode.
type MemoryCounterStore struct {
	mu       sync.RWMutex
	counters map[string]int64
}

// NewMemoryCounterStore creates a new in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]int64)}
}

func (m *MemoryCounterStore) Increment(ctx context.Context, name string) error {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
	return nil
}

func (m *MemoryCounterStore) All(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		out[name] = value
	}
	return out, nil
}

// PostgresCounterStore persists action counters in PostgreSQL so usage
// statistics survive restarts.
type PostgresCounterStore struct {
	db *sql.DB
}

// NewPostgresCounterStore creates a new PostgreSQL-backed counter store.
func NewPostgresCounterStore(db *sql.DB) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

// Migrate creates the usage counter table
func (p *PostgresCounterStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS usage_counters (
			name    VARCHAR(64) PRIMARY KEY,
			value   BIGINT NOT NULL DEFAULT 0
		);
	`)
	return err
}

func (p *PostgresCounterStore) Increment(ctx context.Context, name string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO usage_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = usage_counters.value + 1
	`, name)
	return err
}

func (p *PostgresCounterStore) All(ctx context.Context) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, value FROM usage_counters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		counters[name] = value
	}
	return counters, rows.Err()
}
