package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"morph/internal/logging"
)

func TestNewWritesConsoleOutputToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "morphd.log")
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "ingest")
	logger.Info("file accepted",
		logging.String(logging.FieldEntryID, "f-123"),
		logging.Int("size_bytes", 2048))

	contents, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(contents)
	if !strings.Contains(line, "INFO ingest: file accepted") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "entry_id=f-123") {
		t.Fatalf("expected entry_id attribute, got %q", line)
	}
	if !strings.Contains(line, "size_bytes=2048") {
		t.Fatalf("expected size attribute, got %q", line)
	}
}

func TestNewWritesJSONOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "morphd.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("conversion complete", logging.String("format", "pdf"))

	contents, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(contents)
	if !strings.Contains(line, `"msg":"conversion complete"`) {
		t.Fatalf("unexpected json line: %q", line)
	}
	if !strings.Contains(line, `"level":"info"`) {
		t.Fatalf("expected lowercase level, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "morphd.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	contents, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(contents), "suppressed") {
		t.Fatalf("info line should be filtered: %q", contents)
	}
	if !strings.Contains(string(contents), "kept") {
		t.Fatalf("warn line missing: %q", contents)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("nothing happens", logging.Error(os.ErrNotExist))
}
