// Package shield provides a client SDK for the ScamShield API.
// Device integrations use it to resolve incoming calls, report numbers,
// and manage the whitelist without hand-rolling HTTP.
package shield

import (
	"fmt"
	"time"
)

// Actions a verdict can carry.
const (
	ActionAllow      = "allow"
	ActionSilence    = "silence"
	ActionBlock      = "block"
	ActionAutoReject = "auto_reject"
)

// Risk levels attached to verdicts and cache records.
const (
	RiskHigh    = "high"
	RiskMedium  = "medium"
	RiskLow     = "low"
	RiskSafe    = "safe"
	RiskUnknown = "unknown"
)

// Verdict is the resolved outcome for one call check.
type Verdict struct {
	Number     string    `json:"number"`
	Action     string    `json:"action"`
	State      string    `json:"state"`
	RiskLevel  string    `json:"riskLevel"`
	Confidence float64   `json:"confidence"`
	IsScam     bool      `json:"isScam"`
	IsSpam     bool      `json:"isSpam"`
	Sources    []string  `json:"sources,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// ShouldRing reports whether the device should let the call ring normally.
func (v *Verdict) ShouldRing() bool {
	return v.Action == ActionAllow
}

// ShouldTerminate reports whether the device should end the call.
func (v *Verdict) ShouldTerminate() bool {
	return v.Action == ActionBlock || v.Action == ActionAutoReject
}

// RiskRecord is a cached risk entry for a number.
type RiskRecord struct {
	Number        string     `json:"number"`
	RiskLevel     string     `json:"riskLevel"`
	Confidence    float64    `json:"confidence"`
	Source        string     `json:"source"`
	ReportCount   int        `json:"reportCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// LookupResult is a cache-only lookup outcome.
type LookupResult struct {
	Number  string      `json:"number"`
	Outcome string      `json:"outcome"` // safe, scam, spam, or miss
	Record  *RiskRecord `json:"record,omitempty"`
}

// CheckRequest describes one incoming call to resolve.
type CheckRequest struct {
	Number         string `json:"number"`
	UserPhone      string `json:"userPhone,omitempty"`
	Direction      string `json:"direction,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	SilenceUnknown *bool  `json:"silenceUnknown,omitempty"`
}

// ReportRequest files a scam or spam report against a number.
type ReportRequest struct {
	Number     string  `json:"number"`
	Category   string  `json:"category,omitempty"` // "scam" or "spam"
	Confidence float64 `json:"confidence,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

// Session is a tracked call analysis session.
type Session struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phoneNumber"`
	Status      string     `json:"status"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	DurationMs  int64      `json:"durationMs,omitempty"`
}

// APIError represents an error response from the ScamShield API.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scamshield: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}
