package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"morph/internal/backend"
	"morph/internal/ingest"
	"morph/internal/preview"
	"morph/internal/session"
)

const maxSizeBytes = 50 * 1024 * 1024

type fakeUploader struct {
	calls   int
	failFor map[string]error
}

func (f *fakeUploader) Upload(_ context.Context, name, _ string, _ []byte) (*backend.UploadResult, error) {
	f.calls++
	if err, ok := f.failFor[name]; ok {
		return nil, err
	}
	return &backend.UploadResult{
		FileID:          fmt.Sprintf("id-%d", f.calls),
		EligibleFormats: []string{"pdf", "webp"},
	}, nil
}

func newPipeline(t *testing.T, maxFiles int, uploader *fakeUploader) (*ingest.Pipeline, *session.Session, *preview.Manager) {
	t.Helper()
	sess := session.New(maxFiles)
	previews, err := preview.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new preview manager: %v", err)
	}
	return ingest.NewPipeline(sess, previews, uploader, maxSizeBytes, nil), sess, previews
}

func TestIngestAcceptsValidFiles(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, sess, previews := newPipeline(t, 6, uploader)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "a.png", Data: []byte("png")},
		{Name: "b.mp4", Data: []byte("mp4")},
	})
	if report.Accepted() != 2 {
		t.Fatalf("expected 2 accepted, got %d", report.Accepted())
	}
	if sess.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", sess.Len())
	}
	if previews.Outstanding() != 2 {
		t.Fatalf("expected 2 preview handles, got %d", previews.Outstanding())
	}

	snap := sess.Snapshot()
	if snap.Entries[0].Name != "a.png" || snap.Entries[1].Name != "b.mp4" {
		t.Fatalf("entries out of order: %+v", snap.Entries)
	}
	if snap.Entries[0].MimeType != "image/png" {
		t.Fatalf("unexpected mime: %q", snap.Entries[0].MimeType)
	}
	if snap.Entries[1].RenderKind() != session.KindPlayable {
		t.Fatalf("expected playable render kind for mp4")
	}
}

func TestDuplicateNameRejectedWithoutUpload(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, sess, _ := newPipeline(t, 6, uploader)

	pipeline.Ingest(context.Background(), []ingest.Candidate{{Name: "a.png", Data: []byte("one")}})
	callsAfterFirst := uploader.calls

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{{Name: "a.png", Data: []byte("two")}})
	if report.Accepted() != 0 {
		t.Fatalf("expected rejection, got %d accepted", report.Accepted())
	}
	if !errors.Is(report.Outcomes[0].Err, session.ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got %v", report.Outcomes[0].Err)
	}
	if uploader.calls != callsAfterFirst {
		t.Fatalf("duplicate triggered an upload: %d calls", uploader.calls)
	}
	if sess.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", sess.Len())
	}
}

func TestOversizedFileRejectedWithoutUpload(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, _, _ := newPipeline(t, 6, uploader)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "big.mp4", Data: make([]byte, maxSizeBytes+1)},
	})
	if !errors.Is(report.Outcomes[0].Err, session.ErrSizeExceeded) {
		t.Fatalf("expected size error, got %v", report.Outcomes[0].Err)
	}
	if uploader.calls != 0 {
		t.Fatalf("oversized file triggered an upload")
	}
}

func TestUnsupportedTypeRejectedWithoutUpload(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, _, _ := newPipeline(t, 6, uploader)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "tool.exe", Data: []byte("binary")},
	})
	if !errors.Is(report.Outcomes[0].Err, session.ErrUnsupportedType) {
		t.Fatalf("expected type error, got %v", report.Outcomes[0].Err)
	}
	if uploader.calls != 0 {
		t.Fatalf("unsupported file triggered an upload")
	}
}

func TestCapacityAbortsRemainderKeepsAccepted(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, sess, _ := newPipeline(t, 2, uploader)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "a.png", Data: []byte("a")},
		{Name: "b.png", Data: []byte("b")},
		{Name: "c.png", Data: []byte("c")},
		{Name: "d.png", Data: []byte("d")},
	})
	if report.Accepted() != 2 {
		t.Fatalf("expected 2 accepted, got %d", report.Accepted())
	}
	if !errors.Is(report.Outcomes[2].Err, session.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error for c.png, got %v", report.Outcomes[2].Err)
	}
	if !errors.Is(report.Outcomes[3].Err, session.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error for d.png, got %v", report.Outcomes[3].Err)
	}
	if uploader.calls != 2 {
		t.Fatalf("expected uploads only for accepted files, got %d", uploader.calls)
	}
	if sess.Len() != 2 {
		t.Fatalf("already-accepted entries should remain, got %d", sess.Len())
	}
}

func TestUploadFailureIsNonFatal(t *testing.T) {
	uploader := &fakeUploader{failFor: map[string]error{
		"b.png": errors.New("backend unavailable"),
	}}
	pipeline, sess, previews := newPipeline(t, 6, uploader)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "a.png", Data: []byte("a")},
		{Name: "b.png", Data: []byte("b")},
		{Name: "c.png", Data: []byte("c")},
	})
	if report.Accepted() != 2 {
		t.Fatalf("expected 2 accepted, got %d", report.Accepted())
	}
	if !errors.Is(report.Outcomes[1].Err, session.ErrUploadFailed) {
		t.Fatalf("expected upload error, got %v", report.Outcomes[1].Err)
	}
	if sess.Len() != 2 {
		t.Fatalf("failed upload must not leave an entry, got %d", sess.Len())
	}
	// The failed candidate's preview handle must be given back.
	if previews.Outstanding() != 2 {
		t.Fatalf("expected 2 outstanding handles, got %d", previews.Outstanding())
	}
	acquired, released := previews.Counts()
	if acquired != 3 || released != 1 {
		t.Fatalf("unexpected handle counts: acquired=%d released=%d", acquired, released)
	}
}

func TestGuestNudgeOncePerBatch(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, sess, _ := newPipeline(t, 6, uploader)
	sess.SetAuthMode(session.AuthGuest)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "a.png", Data: []byte("a")},
		{Name: "b.png", Data: []byte("b")},
	})
	if report.LoginNudge != ingest.LoginNudge {
		t.Fatalf("expected login nudge, got %q", report.LoginNudge)
	}

	sess.SetAuthMode(session.AuthAuthenticated)
	report = pipeline.Ingest(context.Background(), []ingest.Candidate{
		{Name: "c.png", Data: []byte("c")},
	})
	if report.LoginNudge != "" {
		t.Fatalf("authenticated batch must not nudge, got %q", report.LoginNudge)
	}
}

func TestRemoveReleasesPreviewHandle(t *testing.T) {
	uploader := &fakeUploader{}
	pipeline, sess, previews := newPipeline(t, 6, uploader)

	report := pipeline.Ingest(context.Background(), []ingest.Candidate{{Name: "a.png", Data: []byte("a")}})
	id := report.Outcomes[0].EntryID

	if err := pipeline.Remove(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if sess.Len() != 0 {
		t.Fatalf("expected empty session, got %d entries", sess.Len())
	}
	if previews.Outstanding() != 0 {
		t.Fatalf("expected released handle, got %d outstanding", previews.Outstanding())
	}

	if err := pipeline.Remove("ghost"); err != nil {
		t.Fatalf("removing unknown id should be a no-op, got %v", err)
	}
}

func TestClassifyWhitelist(t *testing.T) {
	cases := []struct {
		name string
		mime string
		ok   bool
	}{
		{"photo.JPG", "image/jpeg", true},
		{"photo.jpeg", "image/jpeg", true},
		{"doc.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"track.mp3", "audio/mpeg", true},
		{"clip.mp4", "video/mp4", true},
		{"archive.zip", "", false},
		{"noext", "", false},
	}
	for _, tc := range cases {
		mime, ok := ingest.Classify(tc.name)
		if ok != tc.ok || mime != tc.mime {
			t.Fatalf("Classify(%q) = %q %v, want %q %v", tc.name, mime, ok, tc.mime, tc.ok)
		}
	}
}
