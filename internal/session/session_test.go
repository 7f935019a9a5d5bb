package session_test

import (
	"errors"
	"testing"
	"time"

	"morph/internal/session"
)

func newEntry(id, name string) *session.Entry {
	return &session.Entry{
		ID:              id,
		Name:            name,
		SizeBytes:       1024,
		MimeType:        "image/png",
		EligibleFormats: []string{"pdf", "webp"},
	}
}

func TestAppendEnforcesCapacity(t *testing.T) {
	s := session.New(2)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(newEntry("2", "b.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := s.Append(newEntry("3", "c.png"))
	if !errors.Is(err, session.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
}

func TestAppendRejectsDuplicateName(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := s.Append(newEntry("2", "a.png"))
	if !errors.Is(err, session.ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestSelectFormatValidatesEligibility(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.SelectFormat("1", "pdf"); err != nil {
		t.Fatalf("select eligible format: %v", err)
	}
	err := s.SelectFormat("1", "gif")
	if !errors.Is(err, session.ErrFormatNotEligible) {
		t.Fatalf("expected eligibility error, got %v", err)
	}
	err = s.SelectFormat("missing", "pdf")
	if !errors.Is(err, session.ErrEntryNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	if err := s.SelectFormat("1", ""); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	if selections := s.Selections(); len(selections) != 0 {
		t.Fatalf("expected no selections after clear, got %v", selections)
	}
}

func TestBeginJobHoldsSingleLock(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(newEntry("2", "b.png")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.BeginJob("1"); err != nil {
		t.Fatalf("begin job: %v", err)
	}
	err := s.BeginJob("2")
	if !errors.Is(err, session.ErrConversionInProgress) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	s.EndJob()
	if err := s.BeginJob("2"); err != nil {
		t.Fatalf("begin job after release: %v", err)
	}
	s.EndJob()
}

func TestBeginJobRejectsUnknownEntryWithoutSideEffects(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := s.BeginJob("1", "ghost")
	if !errors.Is(err, session.ErrEntryNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if ids := s.ActiveIDs(); len(ids) != 0 {
		t.Fatalf("expected no lock held after failed begin, got %v", ids)
	}
}

func TestRemoveRefusesConvertingEntry(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.BeginJob("1"); err != nil {
		t.Fatalf("begin job: %v", err)
	}
	if _, err := s.Remove("1"); !errors.Is(err, session.ErrConversionInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
	s.EndJob()

	removed, err := s.Remove("1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed == nil || removed.ID != "1" {
		t.Fatalf("unexpected removed entry: %+v", removed)
	}

	removed, err = s.Remove("1")
	if err != nil || removed != nil {
		t.Fatalf("expected idempotent no-op, got %v %v", removed, err)
	}
}

func TestResetWaitsForActiveJob(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.BeginJob("1"); err != nil {
		t.Fatalf("begin job: %v", err)
	}

	done := make(chan []*session.Entry, 1)
	go func() {
		done <- s.Reset()
	}()

	select {
	case <-done:
		t.Fatal("reset completed while conversion lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	s.EndJob()

	select {
	case removed := <-done:
		if len(removed) != 1 || removed[0].ID != "1" {
			t.Fatalf("unexpected removed entries: %+v", removed)
		}
	case <-time.After(time.Second):
		t.Fatal("reset did not complete after lock release")
	}

	snap := s.Snapshot()
	if len(snap.Entries) != 0 || len(snap.Artifacts) != 0 {
		t.Fatalf("expected empty session after reset, got %+v", snap)
	}
}

func TestRecordSuccessAppendsArtifact(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.BeginJob("1"); err != nil {
		t.Fatalf("begin job: %v", err)
	}
	if err := s.MarkConverting("1"); err != nil {
		t.Fatalf("mark converting: %v", err)
	}
	if err := s.RecordSuccess("1", session.Artifact{Name: "a.pdf", DownloadURL: "/files/a.pdf", SourceID: "1"}); err != nil {
		t.Fatalf("record success: %v", err)
	}
	s.EndJob()

	snap := s.Snapshot()
	if snap.Entries[0].Status != session.StatusConverted {
		t.Fatalf("unexpected status: %v", snap.Entries[0].Status)
	}
	if len(snap.Artifacts) != 1 || snap.Artifacts[0].Name != "a.pdf" {
		t.Fatalf("unexpected artifacts: %+v", snap.Artifacts)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := session.New(6)
	if err := s.Append(newEntry("1", "a.png")); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap := s.Snapshot()
	snap.Entries[0].Name = "mutated"
	snap.Entries[0].EligibleFormats[0] = "mutated"

	fresh := s.Snapshot()
	if fresh.Entries[0].Name != "a.png" {
		t.Fatalf("snapshot mutation leaked into session: %q", fresh.Entries[0].Name)
	}
	if fresh.Entries[0].EligibleFormats[0] != "pdf" {
		t.Fatalf("eligible formats mutation leaked: %v", fresh.Entries[0].EligibleFormats)
	}
}

func TestSetAuthModeReturnsPrevious(t *testing.T) {
	s := session.New(6)
	if mode := s.AuthMode(); mode != session.AuthUnknown {
		t.Fatalf("expected unknown initial mode, got %v", mode)
	}
	if previous := s.SetAuthMode(session.AuthGuest); previous != session.AuthUnknown {
		t.Fatalf("expected previous unknown, got %v", previous)
	}
	if previous := s.SetAuthMode(session.AuthAuthenticated); previous != session.AuthGuest {
		t.Fatalf("expected previous guest, got %v", previous)
	}
}
