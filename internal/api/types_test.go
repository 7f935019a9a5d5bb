package api_test

import (
	"testing"
	"time"

	"morph/internal/api"
	"morph/internal/session"
)

func TestGroupByKindSplitsOnRenderKind(t *testing.T) {
	snap := session.Snapshot{
		Entries: []session.Entry{
			{ID: "1", Name: "a.png", MimeType: "image/png"},
			{ID: "2", Name: "b.mp4", MimeType: "video/mp4"},
			{ID: "3", Name: "c.pdf", MimeType: "application/pdf"},
			{ID: "4", Name: "d.mp3", MimeType: "audio/mpeg"},
		},
	}
	view := api.FromSnapshot(snap, nil)

	textual, playable := api.GroupByKind(view.Entries)
	if len(textual) != 2 || textual[0].Name != "a.png" || textual[1].Name != "c.pdf" {
		t.Fatalf("unexpected textual group: %+v", textual)
	}
	if len(playable) != 2 || playable[0].Name != "b.mp4" || playable[1].Name != "d.mp3" {
		t.Fatalf("unexpected playable group: %+v", playable)
	}
	if playable[0].RenderKind != string(session.KindPlayable) {
		t.Fatalf("unexpected render kind: %q", playable[0].RenderKind)
	}
}

func TestFromEntryResolvesPreviewPath(t *testing.T) {
	entry := session.Entry{
		ID:        "1",
		Name:      "a.png",
		SizeBytes: 2048,
		MimeType:  "image/png",
		PreviewID: "handle-1",
		Status:    session.StatusRegistered,
		AddedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	dto := api.FromEntry(entry, func(previewID string) (string, bool) {
		if previewID != "handle-1" {
			t.Fatalf("unexpected preview id: %q", previewID)
		}
		return "/tmp/previews/a.png", true
	})

	if dto.PreviewPath != "/tmp/previews/a.png" {
		t.Fatalf("unexpected preview path: %q", dto.PreviewPath)
	}
	if dto.SizeHuman == "" {
		t.Fatal("expected a human-readable size")
	}
	if dto.AddedAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected addedAt: %q", dto.AddedAt)
	}
}
