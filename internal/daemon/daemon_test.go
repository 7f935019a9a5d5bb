package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"morph/internal/authwatch"
	"morph/internal/daemon"
	"morph/internal/ingest"
	"morph/internal/session"
	"morph/internal/testsupport"
)

func newDaemon(t *testing.T, fb *testsupport.FakeBackend) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(fb.URL()))
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close daemon: %v", err)
		}
	})
	return d
}

func writeInputs(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		testsupport.WriteFile(t, path, 64)
		paths = append(paths, path)
	}
	return paths
}

func TestIngestConvertDownloadFlow(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	d := newDaemon(t, fb)
	ctx := context.Background()

	report, err := d.IngestPaths(ctx, writeInputs(t, "photo.png", "clip.mp4"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.Accepted() != 2 {
		t.Fatalf("expected 2 accepted, got %d", report.Accepted())
	}
	if fb.UploadCount() != 2 {
		t.Fatalf("expected 2 uploads, got %d", fb.UploadCount())
	}

	snap := d.Snapshot()
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}
	id := snap.Entries[0].ID

	artifact, err := d.ConvertOne(ctx, id, "pdf")
	if err != nil {
		t.Fatalf("convert one: %v", err)
	}
	if artifact.Name != "photo.pdf" {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}

	snap = d.Snapshot()
	if snap.Entries[0].Status != session.StatusConverted {
		t.Fatalf("unexpected status: %v", snap.Entries[0].Status)
	}
	if len(snap.Artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(snap.Artifacts))
	}

	dest, err := d.Download(ctx, artifact.Name, artifact.DownloadURL)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !strings.HasPrefix(string(data), "converted-bytes:") {
		t.Fatalf("unexpected download contents: %q", data)
	}

	records, err := d.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].ArtifactName != "photo.pdf" {
		t.Fatalf("unexpected history: %+v", records)
	}
}

func TestGuestNudgeIsBuffered(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	d := newDaemon(t, fb)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for d.Snapshot().AuthMode != session.AuthGuest {
		if time.Now().After(deadline) {
			t.Fatal("auth probe never marked the session guest")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := d.IngestPaths(ctx, writeInputs(t, "a.png")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	notices := d.DrainNotices()
	if len(notices) != 1 || notices[0] != ingest.LoginNudge {
		t.Fatalf("expected one login nudge, got %v", notices)
	}
}

func TestLoginResetsGuestSession(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(fb.URL()))
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if _, err := d.IngestPaths(ctx, writeInputs(t, "a.png", "b.png")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if d.Snapshot().Entries == nil {
		t.Fatal("expected entries before login")
	}

	if _, err := d.Login(ctx, "tester", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	snap := d.Snapshot()
	if len(snap.Entries) != 0 || len(snap.Artifacts) != 0 {
		t.Fatalf("expected reset session after login, got %+v", snap)
	}
	if snap.AuthMode != session.AuthAuthenticated {
		t.Fatalf("expected authenticated mode, got %v", snap.AuthMode)
	}

	notices := d.DrainNotices()
	found := false
	for _, notice := range notices {
		if notice == authwatch.ReuploadNotice {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected re-upload notice, got %v", notices)
	}
	if again := d.DrainNotices(); len(again) != 0 {
		t.Fatalf("notices should drain once, got %v", again)
	}
}

func TestConvertAllRequiresSelections(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	d := newDaemon(t, fb)
	ctx := context.Background()

	if _, err := d.IngestPaths(ctx, writeInputs(t, "a.png")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	_, err := d.ConvertAll(ctx)
	if !errors.Is(err, session.ErrNothingToConvert) {
		t.Fatalf("expected nothing-to-convert, got %v", err)
	}
}

func TestConvertAllBatch(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	d := newDaemon(t, fb)
	ctx := context.Background()

	if _, err := d.IngestPaths(ctx, writeInputs(t, "a.png", "b.png")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	for _, entry := range d.Snapshot().Entries {
		if err := d.SelectFormat(entry.ID, "webp"); err != nil {
			t.Fatalf("select format: %v", err)
		}
	}

	summary, err := d.ConvertAll(ctx)
	if err != nil {
		t.Fatalf("convert all: %v", err)
	}
	if summary.Converted != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	status := d.Status()
	if status.Progress.Percent != 100 {
		t.Fatalf("expected final progress 100, got %d", status.Progress.Percent)
	}
	if status.Artifacts != 2 {
		t.Fatalf("expected 2 artifacts in status, got %d", status.Artifacts)
	}
}

func TestIngestPathsReportsUnreadableFiles(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	d := newDaemon(t, fb)

	report, err := d.IngestPaths(context.Background(), []string{filepath.Join(t.TempDir(), "missing.png")})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.Accepted() != 0 || len(report.Outcomes) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Outcomes[0].Err == nil {
		t.Fatal("expected read error")
	}
}

func TestIngestPathsKeepsOfferOrderForUnreadableFiles(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	d := newDaemon(t, fb)

	paths := writeInputs(t, "a.png", "c.png")
	mixed := []string{paths[0], filepath.Join(t.TempDir(), "b.png"), paths[1]}

	report, err := d.IngestPaths(context.Background(), mixed)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %+v", report.Outcomes)
	}
	names := []string{report.Outcomes[0].Name, report.Outcomes[1].Name, report.Outcomes[2].Name}
	if names[0] != "a.png" || names[1] != "b.png" || names[2] != "c.png" {
		t.Fatalf("outcomes out of offer order: %v", names)
	}
	if report.Outcomes[1].Err == nil {
		t.Fatal("expected read error for the middle path")
	}
	if report.Outcomes[0].Err != nil || report.Outcomes[2].Err != nil {
		t.Fatalf("readable files should be accepted: %+v", report.Outcomes)
	}
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(fb.URL()))

	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer first.Stop()

	if err := first.Start(context.Background()); err == nil {
		t.Fatal("expected second start on same daemon to fail")
	}
}
