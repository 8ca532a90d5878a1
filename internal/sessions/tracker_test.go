package sessions

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestTracker() *Tracker {
	return NewTracker(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateAndGetSession(t *testing.T) {
	tracker := newTestTracker()

	session := tracker.CreateSession(CreateRequest{
		PhoneNumber: "+27821234567",
		Direction:   "incoming",
		IsContact:   true,
	})

	if session.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if session.Status != StatusInitialized {
		t.Errorf("status = %s, want initialized", session.Status)
	}
	if session.StartTime.IsZero() {
		t.Error("expected a start time")
	}

	got, err := tracker.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.PhoneNumber != "+27821234567" || !got.IsContact {
		t.Errorf("got %+v, want the created session", got)
	}
}

func TestGetSessionUnknown(t *testing.T) {
	tracker := newTestTracker()
	if _, err := tracker.GetSession("nope"); err != ErrSessionNotFound {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestAppendOperationsReturnFalseForUnknownID(t *testing.T) {
	tracker := newTestTracker()

	if tracker.AddTranscript("nope", "caller", "hello") {
		t.Error("AddTranscript on unknown id should return false")
	}
	if tracker.AddResult("nope", map[string]interface{}{"action": "allow"}) {
		t.Error("AddResult on unknown id should return false")
	}
	if tracker.AddWarning("nope", WarningHigh, "scam detected") {
		t.Error("AddWarning on unknown id should return false")
	}
	if tracker.Connect("nope") {
		t.Error("Connect on unknown id should return false")
	}
}

func TestSessionLifecycle(t *testing.T) {
	tracker := newTestTracker()
	session := tracker.CreateSession(CreateRequest{PhoneNumber: "+27821234567"})

	if !tracker.Connect(session.ID) {
		t.Fatal("Connect failed")
	}
	if !tracker.AddTranscript(session.ID, "caller", "this is your bank calling") {
		t.Fatal("AddTranscript failed")
	}
	if !tracker.AddResult(session.ID, map[string]interface{}{"action": "block"}) {
		t.Fatal("AddResult failed")
	}
	if !tracker.AddWarning(session.ID, WarningHigh, "caller flagged as scam") {
		t.Fatal("AddWarning failed")
	}

	closed, err := tracker.CloseSession(session.ID)
	if err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	if closed.Status != StatusClosed {
		t.Errorf("status = %s, want closed", closed.Status)
	}
	if closed.EndTime == nil {
		t.Error("expected an end time")
	}
	if closed.DurationMs < 0 {
		t.Errorf("durationMs = %d, want >= 0", closed.DurationMs)
	}
	if len(closed.Transcript) != 1 || len(closed.Results) != 1 || len(closed.Warnings) != 1 {
		t.Errorf("transcript/results/warnings = %d/%d/%d, want 1/1/1",
			len(closed.Transcript), len(closed.Results), len(closed.Warnings))
	}

	// Closing again is a no-op returning the same terminal state.
	again, err := tracker.CloseSession(session.ID)
	if err != nil {
		t.Fatalf("second CloseSession failed: %v", err)
	}
	if !again.EndTime.Equal(*closed.EndTime) {
		t.Error("second close should not move the end time")
	}

	// Connect after close is rejected.
	if tracker.Connect(session.ID) {
		t.Error("Connect on closed session should return false")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	tracker := newTestTracker()
	session := tracker.CreateSession(CreateRequest{PhoneNumber: "+27821234567"})
	tracker.AddWarning(session.ID, WarningLow, "noise")

	snapshot, err := tracker.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	snapshot.Warnings[0].Level = WarningHigh
	snapshot.Status = StatusClosed

	fresh, err := tracker.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fresh.Warnings[0].Level != WarningLow {
		t.Error("mutating a snapshot leaked into tracker state")
	}
	if fresh.Status != StatusInitialized {
		t.Error("mutating a snapshot status leaked into tracker state")
	}
}

func TestCleanupOldSessions(t *testing.T) {
	tracker := newTestTracker()

	stale := tracker.CreateSession(CreateRequest{PhoneNumber: "+27821111111"})
	fresh := tracker.CreateSession(CreateRequest{PhoneNumber: "+27822222222"})

	// Backdate one session past the max age. Cleanup ignores status, so
	// even an unclosed session is reaped.
	tracker.mu.Lock()
	tracker.sessions[stale.ID].StartTime = time.Now().Add(-MaxAge - time.Minute)
	tracker.mu.Unlock()

	removed := tracker.CleanupOldSessions()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, err := tracker.GetSession(stale.ID); err != ErrSessionNotFound {
		t.Error("stale session should be gone")
	}
	if _, err := tracker.GetSession(fresh.ID); err != nil {
		t.Errorf("fresh session should survive: %v", err)
	}
}

func TestStatistics(t *testing.T) {
	tracker := newTestTracker()

	a := tracker.CreateSession(CreateRequest{PhoneNumber: "+27821111111"})
	b := tracker.CreateSession(CreateRequest{PhoneNumber: "+27822222222"})
	tracker.CreateSession(CreateRequest{PhoneNumber: "+27823333333"})

	tracker.AddWarning(a.ID, WarningHigh, "scam")
	tracker.AddWarning(a.ID, WarningMedium, "spam")
	tracker.AddWarning(b.ID, WarningHigh, "scam")
	if _, err := tracker.CloseSession(b.ID); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	stats := tracker.Statistics()
	if stats.TotalSessions != 3 {
		t.Errorf("totalSessions = %d, want 3", stats.TotalSessions)
	}
	if stats.ActiveSessions != 2 || stats.ClosedSessions != 1 {
		t.Errorf("active/closed = %d/%d, want 2/1", stats.ActiveSessions, stats.ClosedSessions)
	}
	if stats.TotalWarnings != 3 {
		t.Errorf("totalWarnings = %d, want 3", stats.TotalWarnings)
	}
	if stats.WarningsByLevel[WarningHigh] != 2 || stats.WarningsByLevel[WarningMedium] != 1 {
		t.Errorf("warningsByLevel = %v, want high:2 medium:1", stats.WarningsByLevel)
	}
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tracker := newTestTracker()
	session := tracker.CreateSession(CreateRequest{PhoneNumber: "+27821234567"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.AddTranscript(session.ID, "caller", "hello")
			tracker.AddWarning(session.ID, WarningLow, "noise")
			tracker.GetSession(session.ID)
			tracker.Statistics()
		}()
	}
	wg.Wait()

	got, err := tracker.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(got.Transcript) != 20 || len(got.Warnings) != 20 {
		t.Errorf("transcript/warnings = %d/%d, want 20/20", len(got.Transcript), len(got.Warnings))
	}
}
