package preview_test

import (
	"errors"
	"os"
	"testing"

	"morph/internal/preview"
)

func TestAcquireStagesBytes(t *testing.T) {
	m, err := preview.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	handle, err := m.Acquire("photo.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if handle.ID == "" {
		t.Fatal("expected handle id")
	}
	data, err := os.ReadFile(handle.Path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected staged contents: %q", data)
	}
	if path, ok := m.Path(handle.ID); !ok || path != handle.Path {
		t.Fatalf("Path lookup mismatch: %q %v", path, ok)
	}
}

func TestReleaseIsExactlyOnce(t *testing.T) {
	m, err := preview.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	handle, err := m.Acquire("doc.pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := m.Release(handle.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(handle.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected staged file removed, got %v", err)
	}
	if err := m.Release(handle.ID); !errors.Is(err, preview.ErrUnknownHandle) {
		t.Fatalf("expected double release to fail, got %v", err)
	}

	acquired, released := m.Counts()
	if acquired != 1 || released != 1 {
		t.Fatalf("unexpected counts: acquired=%d released=%d", acquired, released)
	}
}

func TestReleaseAllBalancesCounts(t *testing.T) {
	m, err := preview.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Acquire("clip.mp4", []byte("mp4")); err != nil {
			t.Fatalf("acquire: %v", err)
		}
	}
	if m.Outstanding() != 3 {
		t.Fatalf("expected 3 outstanding, got %d", m.Outstanding())
	}

	if released := m.ReleaseAll(); released != 3 {
		t.Fatalf("expected 3 released, got %d", released)
	}
	if m.Outstanding() != 0 {
		t.Fatalf("expected no outstanding handles, got %d", m.Outstanding())
	}
	acquired, released := m.Counts()
	if acquired != released {
		t.Fatalf("acquire/release mismatch: %d != %d", acquired, released)
	}
}
