package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Payload returns size bytes of a repeating pattern, for upload fixtures.
func Payload(size int) []byte {
	if size <= 0 {
		size = 1
	}
	return bytes.Repeat([]byte{0x42}, size)
}

// WriteFile creates path with size pattern bytes, creating parent
// directories as needed.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, Payload(size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
