package riskcache

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed risk record store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk record table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		-- Risk records across all three tiers (whitelist, scam, spam)
		CREATE TABLE IF NOT EXISTS risk_records (
			tier            VARCHAR(16) NOT NULL,
			number          VARCHAR(32) NOT NULL,
			risk_level      VARCHAR(16) NOT NULL,
			confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
			source          VARCHAR(255) NOT NULL DEFAULT '',
			report_count    INTEGER NOT NULL DEFAULT 1,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at      TIMESTAMPTZ,
			PRIMARY KEY (tier, number)
		);

		CREATE INDEX IF NOT EXISTS idx_risk_records_updated ON risk_records(tier, last_updated_at ASC);
		CREATE INDEX IF NOT EXISTS idx_risk_records_expires ON risk_records(expires_at) WHERE expires_at IS NOT NULL;
	`)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, tier Tier, number string) (*RiskRecord, error) {
	record := &RiskRecord{}
	var expiresAt sql.NullTime

	err := p.db.QueryRowContext(ctx, `
		SELECT number, risk_level, confidence, source, report_count, created_at, last_updated_at, expires_at
		FROM risk_records WHERE tier = $1 AND number = $2
	`, tier, number).Scan(
		&record.Number, &record.RiskLevel, &record.Confidence, &record.Source,
		&record.ReportCount, &record.CreatedAt, &record.LastUpdatedAt, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		record.ExpiresAt = &t
	}
	return record, nil
}

func (p *PostgresStore) Put(ctx context.Context, tier Tier, record *RiskRecord) error {
	var expiresAt interface{}
	if record.ExpiresAt != nil {
		expiresAt = *record.ExpiresAt
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO risk_records (tier, number, risk_level, confidence, source, report_count, created_at, last_updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tier, number) DO UPDATE SET
			risk_level = EXCLUDED.risk_level,
			confidence = EXCLUDED.confidence,
			source = EXCLUDED.source,
			report_count = EXCLUDED.report_count,
			last_updated_at = EXCLUDED.last_updated_at,
			expires_at = EXCLUDED.expires_at
	`, tier, record.Number, record.RiskLevel, record.Confidence, record.Source,
		record.ReportCount, record.CreatedAt, record.LastUpdatedAt, expiresAt)
	return err
}

func (p *PostgresStore) Delete(ctx context.Context, tier Tier, number string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM risk_records WHERE tier = $1 AND number = $2
	`, tier, number)
	return err
}

func (p *PostgresStore) Count(ctx context.Context, tier Tier) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM risk_records WHERE tier = $1
	`, tier).Scan(&count)
	return count, err
}

func (p *PostgresStore) DeleteOldest(ctx context.Context, tier Tier, n int) (int, error) {
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM risk_records
		WHERE tier = $1 AND number IN (
			SELECT number FROM risk_records
			WHERE tier = $1
			ORDER BY last_updated_at ASC
			LIMIT $2
		)
	`, tier, n)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (p *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (map[Tier]int, error) {
	rows, err := p.db.QueryContext(ctx, `
		DELETE FROM risk_records
		WHERE expires_at IS NOT NULL AND expires_at < $1
		RETURNING tier
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purged := make(map[Tier]int)
	for rows.Next() {
		var tier Tier
		if err := rows.Scan(&tier); err != nil {
			return nil, err
		}
		purged[tier]++
	}
	return purged, rows.Err()
}
