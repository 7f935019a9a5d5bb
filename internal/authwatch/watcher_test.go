package authwatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"morph/internal/authwatch"
	"morph/internal/backend"
	"morph/internal/preview"
	"morph/internal/session"
)

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (f *fakeProber) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProber) Me(context.Context) (*backend.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Identity{ID: "u-1", Username: "alex"}, nil
}

func newFixture(t *testing.T, prober *fakeProber, onReset func(int, string)) (*authwatch.Watcher, *session.Session, *preview.Manager) {
	t.Helper()
	sess := session.New(6)
	previews, err := preview.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new preview manager: %v", err)
	}
	watcher := authwatch.NewWatcher(sess, previews, prober, time.Second, nil, onReset)
	return watcher, sess, previews
}

func addEntry(t *testing.T, sess *session.Session, previews *preview.Manager, name string) {
	t.Helper()
	handle, err := previews.Acquire(name, []byte("bytes"))
	if err != nil {
		t.Fatalf("acquire preview: %v", err)
	}
	err = sess.Append(&session.Entry{
		ID:              name,
		Name:            name,
		SizeBytes:       5,
		MimeType:        "image/png",
		PreviewID:       handle.ID,
		EligibleFormats: []string{"pdf"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestProbeMapsFailuresToGuest(t *testing.T) {
	prober := &fakeProber{err: backend.ErrUnauthenticated}
	watcher, sess, _ := newFixture(t, prober, nil)

	if mode := watcher.Probe(context.Background()); mode != session.AuthGuest {
		t.Fatalf("expected guest, got %v", mode)
	}
	if sess.AuthMode() != session.AuthGuest {
		t.Fatalf("session mode not updated: %v", sess.AuthMode())
	}

	// Network failures also count as not signed in.
	prober.setErr(errors.New("connection refused"))
	if mode := watcher.Probe(context.Background()); mode != session.AuthGuest {
		t.Fatalf("expected guest on network failure, got %v", mode)
	}
}

func TestSignInEdgeResetsSession(t *testing.T) {
	var notices []string
	var cleared []int
	prober := &fakeProber{err: backend.ErrUnauthenticated}
	watcher, sess, previews := newFixture(t, prober, func(removed int, msg string) {
		cleared = append(cleared, removed)
		notices = append(notices, msg)
	})

	watcher.Probe(context.Background())
	addEntry(t, sess, previews, "a.png")
	addEntry(t, sess, previews, "b.png")

	prober.setErr(nil)
	if mode := watcher.Probe(context.Background()); mode != session.AuthAuthenticated {
		t.Fatalf("expected authenticated, got %v", mode)
	}

	if sess.Len() != 0 {
		t.Fatalf("expected cleared session, got %d entries", sess.Len())
	}
	if previews.Outstanding() != 0 {
		t.Fatalf("expected released previews, got %d", previews.Outstanding())
	}
	if len(notices) != 1 || notices[0] != authwatch.ReuploadNotice {
		t.Fatalf("expected one re-upload notice, got %v", notices)
	}
	if len(cleared) != 1 || cleared[0] != 2 {
		t.Fatalf("expected 2 cleared entries reported, got %v", cleared)
	}

	// Edge-triggered: further successful probes must not fire again.
	addEntry(t, sess, previews, "c.png")
	watcher.Probe(context.Background())
	if sess.Len() != 1 {
		t.Fatalf("level-triggered reset destroyed entries: %d", sess.Len())
	}
	if len(notices) != 1 {
		t.Fatalf("expected no extra notices, got %v", notices)
	}
}

func TestSignInWithEmptySessionEmitsNoNotice(t *testing.T) {
	var notices []string
	prober := &fakeProber{err: backend.ErrUnauthenticated}
	watcher, _, _ := newFixture(t, prober, func(_ int, msg string) {
		notices = append(notices, msg)
	})

	watcher.Probe(context.Background())
	prober.setErr(nil)
	watcher.Probe(context.Background())

	if len(notices) != 0 {
		t.Fatalf("expected no notices, got %v", notices)
	}
}

func TestResetWaitsForConversionLock(t *testing.T) {
	prober := &fakeProber{err: backend.ErrUnauthenticated}
	watcher, sess, previews := newFixture(t, prober, nil)

	watcher.Probe(context.Background())
	addEntry(t, sess, previews, "a.png")
	if err := sess.BeginJob("a.png"); err != nil {
		t.Fatalf("begin job: %v", err)
	}

	prober.setErr(nil)
	done := make(chan struct{})
	go func() {
		watcher.Probe(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("reset completed while conversion lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	sess.EndJob()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reset did not complete after lock release")
	}
	if sess.Len() != 0 {
		t.Fatalf("expected cleared session, got %d entries", sess.Len())
	}
}

func TestStartStop(t *testing.T) {
	prober := &fakeProber{}
	watcher, sess, _ := newFixture(t, prober, nil)

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := watcher.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	deadline := time.Now().Add(time.Second)
	for sess.AuthMode() == session.AuthUnknown {
		if time.Now().After(deadline) {
			t.Fatal("initial probe never ran")
		}
		time.Sleep(time.Millisecond)
	}

	watcher.Stop()
	watcher.Stop()
}
