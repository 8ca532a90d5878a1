// Package decision implements the call resolution state machine for
// ScamShield. Given an incoming call it consults the tiered risk cache,
// the trusted-contacts capability, and the remote provider aggregator,
// and resolves exactly one terminal action: allow, silence, block, or
// auto-reject.
package decision

import (
	"context"
	"errors"
	"time"

	"github.com/counttalita/ScamShield-sub000/internal/riskcache"
)

// ErrMissingNumber is the one caller-visible failure: a check request
// without a phone number fails validation before any lookup begins.
var ErrMissingNumber = errors.New("phone number is required")

// Action is the terminal outcome applied to an incoming call.
type Action string

const (
	ActionAllow      Action = "allow"
	ActionSilence    Action = "silence"     // ringer muted, voicemail reachable
	ActionBlock      Action = "block"       // terminated after minimal ring
	ActionAutoReject Action = "auto_reject" // silently rejected before ringing
)

// CounterName maps an action onto its persisted statistics counter.
func (a Action) CounterName() string {
	switch a {
	case ActionBlock:
		return "blocked"
	case ActionSilence:
		return "silenced"
	case ActionAutoReject:
		return "auto_rejected"
	default:
		return "allowed"
	}
}

// State is where in the resolution flow a verdict came from.
type State string

const (
	StateUnknown       State = "unknown"
	StateWhitelisted   State = "whitelisted"
	StateCacheScam     State = "cache_scam"
	StateCacheSpam     State = "cache_spam"
	StateCacheMiss     State = "cache_miss"
	StateContactMatch  State = "contact_match"
	StateRemoteChecked State = "remote_checked"
)

// CheckRequest describes one incoming call to resolve.
type CheckRequest struct {
	Number    string `json:"number" binding:"required"`
	UserPhone string `json:"userPhone"`
	Direction string `json:"direction"`
	SessionID string `json:"sessionId"`
	// SilenceUnknown overrides the engine-wide setting per request.
	SilenceUnknown *bool `json:"silenceUnknown"`
}

// Verdict is the resolved outcome for one call.
type Verdict struct {
	Number     string              `json:"number"`
	Action     Action              `json:"action"`
	State      State               `json:"state"`
	RiskLevel  riskcache.RiskLevel `json:"riskLevel"`
	Confidence float64             `json:"confidence"`
	IsScam     bool                `json:"isScam"`
	IsSpam     bool                `json:"isSpam"`
	Sources    []string            `json:"sources,omitempty"`
	CheckedAt  time.Time           `json:"checkedAt"`
}

// CounterStore persists named action counters across restarts.
type CounterStore interface {
	Increment(ctx context.Context, name string) error
	All(ctx context.Context) (map[string]int64, error)
}

// Recorder lets the engine append verdicts and warnings to a call
// session without depending on the session tracker directly. Append
// calls return false for unknown session ids; the engine ignores that,
// since sessions may already have been reaped.
type Recorder interface {
	AddResult(id string, event map[string]interface{}) bool
	AddWarning(id, level, message string) bool
}
