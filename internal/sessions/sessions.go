// Package sessions tracks ephemeral call analysis sessions. A session
// collects the transcript fragments, screening results, and warnings
// observed during one phone call. Sessions live in memory only and are
// reaped an hour after they started, whether or not they were closed.
package sessions

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown,
	// including sessions that have already been reaped.
	ErrSessionNotFound = errors.New("session not found")
)

// Session lifecycle states.
const (
	StatusInitialized = "initialized"
	StatusConnected   = "connected"
	StatusClosed      = "closed"
)

// Warning levels attached to analysis events.
const (
	WarningLow    = "low"
	WarningMedium = "medium"
	WarningHigh   = "high"
)

// TranscriptEntry is one fragment of call audio transcription.
type TranscriptEntry struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Warning is an analysis alert raised during a call.
type Warning struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CallSession is the full state of one tracked call.
type CallSession struct {
	ID          string                   `json:"id"`
	PhoneNumber string                   `json:"phoneNumber"`
	UserPhone   string                   `json:"userPhone,omitempty"`
	Direction   string                   `json:"direction,omitempty"`
	IsContact   bool                     `json:"isContact"`
	Status      string                   `json:"status"`
	Transcript  []TranscriptEntry        `json:"transcript,omitempty"`
	Results     []map[string]interface{} `json:"results,omitempty"`
	Warnings    []Warning                `json:"warnings,omitempty"`
	StartTime   time.Time                `json:"startTime"`
	EndTime     *time.Time               `json:"endTime,omitempty"`
	DurationMs  int64                    `json:"durationMs,omitempty"`
}

// CreateRequest describes a new session to track.
type CreateRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	UserPhone   string `json:"userPhone"`
	Direction   string `json:"direction"`
	IsContact   bool   `json:"isContact"`
}

// Statistics summarizes the tracker's current contents.
type Statistics struct {
	TotalSessions   int            `json:"totalSessions"`
	ActiveSessions  int            `json:"activeSessions"`
	ClosedSessions  int            `json:"closedSessions"`
	TotalWarnings   int            `json:"totalWarnings"`
	WarningsByLevel map[string]int `json:"warningsByLevel"`
}
