// Package provider implements the risk-provider registry and the
// concurrent remote aggregator for ScamShield.
//
// Providers are external services that return a risk verdict for a phone
// number. The aggregator fans a check out to every enabled provider in
// parallel, waits for all of them to settle, and combines the surviving
// results with a configurable consensus strategy.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/counttalita/ScamShield-sub000/internal/riskcache"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrProviderExists   = errors.New("provider already registered")
)

// Action is the verdict a provider (or the aggregator) recommends.
const (
	ActionAllow = "allow"
	ActionBlock = "block"
)

// DefaultTimeout bounds a single provider call when the binding does not
// configure its own.
const DefaultTimeout = 5 * time.Second

// Checker is the risk-provider capability: one remote verdict per number.
type Checker interface {
	CheckNumber(ctx context.Context, number string) (*Result, error)
}

// Result is one provider's verdict. Ephemeral: it lives for the duration
// of a single aggregation round.
type Result struct {
	Provider       string              `json:"provider"`
	RiskLevel      riskcache.RiskLevel `json:"riskLevel"`
	Confidence     float64             `json:"confidence"`
	Action         string              `json:"action"`
	ResponseTimeMs int64               `json:"responseTimeMs"`
	Weight         float64             `json:"weight"`
}

// Binding is a registered provider's configuration.
type Binding struct {
	Name     string        `json:"name"`
	Weight   float64       `json:"weight"`   // weighted_average only
	Priority int           `json:"priority"` // highest_risk tie-break, lower wins
	Timeout  time.Duration `json:"timeout"`
	Enabled  bool          `json:"enabled"`
	Endpoint string        `json:"endpoint,omitempty"`
}

// Stats tracks a provider's observed behavior across aggregation rounds.
type Stats struct {
	Calls         int64   `json:"calls"`
	Successes     int64   `json:"successes"`
	Failures      int64   `json:"failures"`
	AvgResponseMs float64 `json:"avgResponseMs"`
}

// RegisterRequest is the request body for registering a provider.
type RegisterRequest struct {
	Name      string  `json:"name" binding:"required"`
	Endpoint  string  `json:"endpoint" binding:"required"`
	Weight    float64 `json:"weight"`
	Priority  int     `json:"priority"`
	TimeoutMs int     `json:"timeoutMs"`
	Enabled   *bool   `json:"enabled"`
}

// Assessment is the aggregated verdict for one number, consumed by the
// decision engine and then discarded except for what the cache keeps.
type Assessment struct {
	Number        string              `json:"number"`
	RiskLevel     riskcache.RiskLevel `json:"riskLevel"`
	Confidence    float64             `json:"confidence"`
	Action        string              `json:"action"`
	AutoReject    bool                `json:"autoReject"`
	IsScam        bool                `json:"isScam"`
	IsSpam        bool                `json:"isSpam"`
	Sources       []string            `json:"sources"`
	PrimarySource string              `json:"primarySource,omitempty"`
	Strategy      Strategy            `json:"strategy"`
}

// Strategy selects how multiple provider verdicts are combined.
type Strategy string

const (
	StrategyHighestRisk     Strategy = "highest_risk"
	StrategyMajorityVote    Strategy = "majority_vote"
	StrategyWeightedAverage Strategy = "weighted_average"
)

// ParseStrategy maps a string to a Strategy, defaulting to highest_risk.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyMajorityVote, StrategyWeightedAverage:
		return Strategy(s)
	default:
		return StrategyHighestRisk
	}
}
