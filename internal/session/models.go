package session

import (
	"strings"
	"time"
)

// Status represents the conversion lifecycle of an entry.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusConverting Status = "converting"
	StatusConverted  Status = "converted"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusRegistered,
	StatusConverting,
	StatusConverted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// AuthMode describes the session's authentication state.
type AuthMode string

const (
	AuthUnknown       AuthMode = "unknown"
	AuthGuest         AuthMode = "guest"
	AuthAuthenticated AuthMode = "authenticated"
)

// RenderKind partitions entries into presentation categories. It is derived
// from the MIME type at ingestion and has no effect on conversion logic.
type RenderKind string

const (
	KindTextual  RenderKind = "textual"
	KindPlayable RenderKind = "playable"
)

// RenderKindFor classifies a MIME type for the rendering layer.
func RenderKindFor(mimeType string) RenderKind {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if strings.HasPrefix(normalized, "audio/") || strings.HasPrefix(normalized, "video/") {
		return KindPlayable
	}
	return KindTextual
}

// Entry represents one user-added file under management in the session.
type Entry struct {
	ID              string
	Name            string
	SizeBytes       int64
	MimeType        string
	PreviewID       string
	EligibleFormats []string
	SelectedFormat  string
	Status          Status
	ErrorMessage    string
	TextExcerpt     string
	AddedAt         time.Time
}

// EligibleFor reports whether format is one of the entry's eligible targets.
func (e *Entry) EligibleFor(format string) bool {
	for _, candidate := range e.EligibleFormats {
		if candidate == format {
			return true
		}
	}
	return false
}

// RenderKind returns the presentation category for the entry.
func (e *Entry) RenderKind() RenderKind {
	return RenderKindFor(e.MimeType)
}

// SetFailed marks the entry as failed with the given error message.
func (e *Entry) SetFailed(message string) {
	e.Status = StatusFailed
	e.ErrorMessage = message
}

// SetConverted marks the entry as successfully converted.
func (e *Entry) SetConverted() {
	e.Status = StatusConverted
	e.ErrorMessage = ""
}

// Artifact records one successful conversion output.
type Artifact struct {
	Name        string
	DownloadURL string
	SourceID    string
	Format      string
	CreatedAt   time.Time
}

// Snapshot is a read-only copy of the session handed to the rendering layer.
type Snapshot struct {
	Entries   []Entry
	Artifacts []Artifact
	AuthMode  AuthMode
	ActiveIDs []string
}

// Converting reports whether a conversion job currently holds the lock.
func (s Snapshot) Converting() bool {
	return len(s.ActiveIDs) > 0
}
