// Package riskcache implements the tiered local risk cache for ScamShield.
//
// The cache answers "what do we already know about this number" without a
// network call. It holds three tiers: whitelist, scam, and spam. Whitelist
// membership always wins over scam/spam records. Scam records expire after
// a configured TTL (default 30 days), spam records sooner (default 7 days),
// whitelist entries never expire unless explicitly removed.
package riskcache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("risk record not found")
	ErrUnknownTier    = errors.New("unknown cache tier")
)

// RiskLevel classifies how dangerous a number is believed to be.
type RiskLevel string

const (
	RiskHigh    RiskLevel = "high"
	RiskMedium  RiskLevel = "medium"
	RiskLow     RiskLevel = "low"
	RiskSafe    RiskLevel = "safe"
	RiskUnknown RiskLevel = "unknown"
)

// Ordinal returns the comparable severity of a risk level.
// Higher means more dangerous.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// ParseRiskLevel maps a string to a RiskLevel, defaulting to unknown.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(s) {
	case RiskHigh, RiskMedium, RiskLow, RiskSafe, RiskUnknown:
		return RiskLevel(s)
	default:
		return RiskUnknown
	}
}

// Tier identifies one of the cache's three stores.
type Tier string

const (
	TierWhitelist Tier = "whitelist"
	TierScam      Tier = "scam"
	TierSpam      Tier = "spam"
)

// Tiers lists all tiers in lookup-precedence order.
var Tiers = []Tier{TierWhitelist, TierScam, TierSpam}

// RiskRecord is one cached verdict about a phone number.
// The number is always in normalized form.
type RiskRecord struct {
	Number        string     `json:"number"`
	RiskLevel     RiskLevel  `json:"riskLevel"`
	Confidence    float64    `json:"confidence"`
	Source        string     `json:"source"`
	ReportCount   int        `json:"reportCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the record is past its expiry at the given instant.
func (r *RiskRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Outcome is the result class of a cache lookup.
type Outcome string

const (
	OutcomeSafe Outcome = "safe" // whitelisted
	OutcomeScam Outcome = "scam"
	OutcomeSpam Outcome = "spam"
	OutcomeMiss Outcome = "miss"
)

// LookupResult is what the cache knows about a number.
// Record is nil for OutcomeMiss and OutcomeSafe without a stored record.
type LookupResult struct {
	Outcome Outcome     `json:"outcome"`
	Record  *RiskRecord `json:"record,omitempty"`
}

// ReportRequest is the request body for reporting a number.
type ReportRequest struct {
	Number     string  `json:"number" binding:"required"`
	Category   string  `json:"category"` // "scam" or "spam", defaults to spam
	Confidence float64 `json:"confidence"`
	Comment    string  `json:"comment"`
}

// WhitelistRequest is the request body for whitelisting a number.
type WhitelistRequest struct {
	Number string `json:"number" binding:"required"`
	Source string `json:"source"`
}

// Store persists risk records across the three tiers.
type Store interface {
	Get(ctx context.Context, tier Tier, number string) (*RiskRecord, error)
	Put(ctx context.Context, tier Tier, record *RiskRecord) error
	Delete(ctx context.Context, tier Tier, number string) error
	Count(ctx context.Context, tier Tier) (int, error)
	// DeleteOldest removes up to n records from a tier ranked by
	// lastUpdatedAt ascending and returns how many were removed.
	DeleteOldest(ctx context.Context, tier Tier, n int) (int, error)
	// PurgeExpired removes records whose expiresAt is before now and
	// returns per-tier purge counts.
	PurgeExpired(ctx context.Context, now time.Time) (map[Tier]int, error)
}
