package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"morph/internal/session"
)

// Entry describes a session entry in a transport-friendly format.
type Entry struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	SizeBytes       int64    `json:"sizeBytes"`
	SizeHuman       string   `json:"sizeHuman"`
	MimeType        string   `json:"mimeType"`
	RenderKind      string   `json:"renderKind"`
	PreviewPath     string   `json:"previewPath,omitempty"`
	EligibleFormats []string `json:"eligibleFormats"`
	SelectedFormat  string   `json:"selectedFormat,omitempty"`
	Status          string   `json:"status"`
	ErrorMessage    string   `json:"errorMessage,omitempty"`
	TextExcerpt     string   `json:"textExcerpt,omitempty"`
	AddedAt         string   `json:"addedAt,omitempty"`
}

// Artifact describes a conversion output in a transport-friendly format.
type Artifact struct {
	Name        string `json:"name"`
	DownloadURL string `json:"downloadUrl"`
	SourceID    string `json:"sourceId"`
	Format      string `json:"format"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// SessionView is the full rendering-layer snapshot.
type SessionView struct {
	Entries   []Entry    `json:"entries"`
	Artifacts []Artifact `json:"artifacts"`
	AuthMode  string     `json:"authMode"`
	ActiveIDs []string   `json:"activeIds,omitempty"`
}

// PreviewResolver maps a preview handle to its staged file path.
type PreviewResolver func(previewID string) (string, bool)

// FromEntry converts a session entry. resolve may be nil.
func FromEntry(entry session.Entry, resolve PreviewResolver) Entry {
	dto := Entry{
		ID:              entry.ID,
		Name:            entry.Name,
		SizeBytes:       entry.SizeBytes,
		SizeHuman:       humanize.IBytes(uint64(entry.SizeBytes)),
		MimeType:        entry.MimeType,
		RenderKind:      string(entry.RenderKind()),
		EligibleFormats: append([]string(nil), entry.EligibleFormats...),
		SelectedFormat:  entry.SelectedFormat,
		Status:          string(entry.Status),
		ErrorMessage:    entry.ErrorMessage,
		TextExcerpt:     entry.TextExcerpt,
	}
	if !entry.AddedAt.IsZero() {
		dto.AddedAt = entry.AddedAt.UTC().Format(time.RFC3339)
	}
	if resolve != nil && entry.PreviewID != "" {
		if path, ok := resolve(entry.PreviewID); ok {
			dto.PreviewPath = path
		}
	}
	return dto
}

// FromArtifact converts a session artifact.
func FromArtifact(artifact session.Artifact) Artifact {
	dto := Artifact{
		Name:        artifact.Name,
		DownloadURL: artifact.DownloadURL,
		SourceID:    artifact.SourceID,
		Format:      artifact.Format,
	}
	if !artifact.CreatedAt.IsZero() {
		dto.CreatedAt = artifact.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// FromSnapshot converts a full session snapshot.
func FromSnapshot(snap session.Snapshot, resolve PreviewResolver) SessionView {
	view := SessionView{
		Entries:   make([]Entry, 0, len(snap.Entries)),
		Artifacts: make([]Artifact, 0, len(snap.Artifacts)),
		AuthMode:  string(snap.AuthMode),
		ActiveIDs: append([]string(nil), snap.ActiveIDs...),
	}
	for _, entry := range snap.Entries {
		view.Entries = append(view.Entries, FromEntry(entry, resolve))
	}
	for _, artifact := range snap.Artifacts {
		view.Artifacts = append(view.Artifacts, FromArtifact(artifact))
	}
	return view
}

// GroupByKind splits entries into textual and playable groups, preserving
// session order within each group.
func GroupByKind(entries []Entry) (textual, playable []Entry) {
	for _, entry := range entries {
		if entry.RenderKind == string(session.KindPlayable) {
			playable = append(playable, entry)
			continue
		}
		textual = append(textual, entry)
	}
	return textual, playable
}
