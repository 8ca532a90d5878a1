package sessions

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/counttalita/ScamShield-sub000/internal/metrics"
)

// MaxAge is how long a session survives after its start time.
// Reaping ignores status: an unclosed session still disappears.
const MaxAge = time.Hour

// Tracker holds all live call sessions in memory.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*CallSession
	logger   *slog.Logger
}

// NewTracker creates an empty session tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		sessions: make(map[string]*CallSession),
		logger:   logger,
	}
}

// CreateSession starts tracking a new call and returns its session.
func (t *Tracker) CreateSession(req CreateRequest) *CallSession {
	session := &CallSession{
		ID:          uuid.New().String(),
		PhoneNumber: req.PhoneNumber,
		UserPhone:   req.UserPhone,
		Direction:   req.Direction,
		IsContact:   req.IsContact,
		Status:      StatusInitialized,
		StartTime:   time.Now(),
	}

	t.mu.Lock()
	t.sessions[session.ID] = session
	total := len(t.sessions)
	t.mu.Unlock()

	metrics.ActiveCallSessions.Set(float64(total))
	t.logger.Debug("session created", "sessionId", session.ID, "number", req.PhoneNumber)
	return copySession(session)
}

// GetSession returns a snapshot of a session.
func (t *Tracker) GetSession(id string) (*CallSession, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	session, ok := t.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

// Connect marks a session's call as answered.
func (t *Tracker) Connect(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok || session.Status == StatusClosed {
		return false
	}
	session.Status = StatusConnected
	return true
}

// AddTranscript appends a transcript fragment.
// Returns false for unknown session ids.
func (t *Tracker) AddTranscript(id, speaker, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok {
		return false
	}
	session.Transcript = append(session.Transcript, TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	})
	return true
}

// AddResult appends a screening result event.
// Returns false for unknown session ids.
func (t *Tracker) AddResult(id string, event map[string]interface{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok {
		return false
	}
	session.Results = append(session.Results, event)
	return true
}

// AddWarning appends an analysis warning.
// Returns false for unknown session ids.
func (t *Tracker) AddWarning(id, level, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok {
		return false
	}
	session.Warnings = append(session.Warnings, Warning{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	})
	return true
}

// CloseSession ends a session, stamping its end time and duration.
// Closing an already-closed session is a no-op that returns the session.
func (t *Tracker) CloseSession(id string) (*CallSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if session.Status != StatusClosed {
		now := time.Now()
		session.Status = StatusClosed
		session.EndTime = &now
		duration := now.Sub(session.StartTime).Milliseconds()
		if duration < 0 {
			duration = 0
		}
		session.DurationMs = duration
	}
	return copySession(session), nil
}

// CleanupOldSessions removes every session older than MaxAge and returns
// how many were removed.
func (t *Tracker) CleanupOldSessions() int {
	cutoff := time.Now().Add(-MaxAge)

	t.mu.Lock()
	removed := 0
	for id, session := range t.sessions {
		if session.StartTime.Before(cutoff) {
			delete(t.sessions, id)
			removed++
		}
	}
	total := len(t.sessions)
	t.mu.Unlock()

	if removed > 0 {
		metrics.SessionsReapedTotal.Add(float64(removed))
		metrics.ActiveCallSessions.Set(float64(total))
		t.logger.Info("reaped old sessions", "removed", removed, "remaining", total)
	}
	return removed
}

// Statistics scans all tracked sessions and summarizes them.
func (t *Tracker) Statistics() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Statistics{WarningsByLevel: make(map[string]int)}
	for _, session := range t.sessions {
		stats.TotalSessions++
		if session.Status == StatusClosed {
			stats.ClosedSessions++
		} else {
			stats.ActiveSessions++
		}
		for _, w := range session.Warnings {
			stats.TotalWarnings++
			stats.WarningsByLevel[w.Level]++
		}
	}
	return stats
}

// copySession returns a defensive copy so callers cannot mutate tracker
// state without holding the lock.
func copySession(s *CallSession) *CallSession {
	out := *s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	out.Transcript = append([]TranscriptEntry(nil), s.Transcript...)
	out.Results = append([]map[string]interface{}(nil), s.Results...)
	out.Warnings = append([]Warning(nil), s.Warnings...)
	return &out
}
