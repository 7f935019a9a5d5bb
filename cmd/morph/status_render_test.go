package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Morph", statusOK, "Running (pid 42)", false)
	if !strings.Contains(line, "Morph:") || !strings.Contains(line, "[OK] Running (pid 42)") {
		t.Fatalf("unexpected line: %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatalf("expected no color codes: %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Auth", statusWarn, "Guest", true)
	if !strings.HasPrefix(line, ansiYellow) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected yellow wrapping: %q", line)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Session", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %v", lines)
	}
	if lines[0] != "== Session ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length mismatch: %q vs %q", lines[0], lines[1])
	}
}
