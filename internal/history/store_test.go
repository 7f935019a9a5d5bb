package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"morph/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestAddAndListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := []history.Record{
		{SourceName: "a.png", ArtifactName: "a.pdf", Format: "pdf", DownloadURL: "/d/a.pdf", ConvertedAt: base},
		{SourceName: "b.png", ArtifactName: "b.webp", Format: "webp", DownloadURL: "/d/b.webp", ConvertedAt: base.Add(time.Minute)},
	}
	for _, record := range records {
		if _, err := store.Add(ctx, record); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	listed, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(listed))
	}
	if listed[0].SourceName != "b.png" || listed[1].SourceName != "a.png" {
		t.Fatalf("unexpected order: %q then %q", listed[0].SourceName, listed[1].SourceName)
	}
	if !listed[0].ConvertedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("timestamp not round-tripped: %v", listed[0].ConvertedAt)
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := history.Record{
			SourceName:   "f.png",
			ArtifactName: "f.pdf",
			Format:       "pdf",
			DownloadURL:  "/d/f.pdf",
			ConvertedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
		if _, err := store.Add(ctx, record); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	listed, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 records, got %d", len(listed))
	}
}

func TestClearRemovesEverything(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, history.Record{SourceName: "a.png", ArtifactName: "a.pdf", Format: "pdf", DownloadURL: "/d/a.pdf"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	deleted, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	listed, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty history, got %d records", len(listed))
	}
}
