package ipc

import "morph/internal/api"

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running         bool     `json:"running"`
	PID             int      `json:"pid"`
	AuthMode        string   `json:"auth_mode"`
	Entries         int      `json:"entries"`
	Artifacts       int      `json:"artifacts"`
	ActiveIDs       []string `json:"active_ids,omitempty"`
	ProgressPercent int      `json:"progress_percent"`
	ProgressDone    int      `json:"progress_done"`
	ProgressTotal   int      `json:"progress_total"`
	LockPath        string   `json:"lock_path"`
	SocketPath      string   `json:"socket_path"`
	HistoryDBPath   string   `json:"history_db_path"`
	Notices         []string `json:"notices,omitempty"`
}

// SessionShowRequest fetches the full session view.
type SessionShowRequest struct{}

// SessionShowResponse contains the rendering-layer snapshot.
type SessionShowResponse struct {
	View    api.SessionView `json:"view"`
	Notices []string        `json:"notices,omitempty"`
}

// FileOutcome reports what happened to one offered file.
type FileOutcome struct {
	Name    string `json:"name"`
	EntryID string `json:"entry_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AddRequest registers local files with the session.
type AddRequest struct {
	Paths []string `json:"paths"`
}

// AddResponse reports per-file ingestion outcomes in offer order.
type AddResponse struct {
	Outcomes []FileOutcome `json:"outcomes"`
	Accepted int           `json:"accepted"`
	Notices  []string      `json:"notices,omitempty"`
}

// RemoveRequest deletes one session entry.
type RemoveRequest struct {
	ID string `json:"id"`
}

// RemoveResponse reports removal.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// SelectFormatRequest sets or clears an entry's target format.
type SelectFormatRequest struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// SelectFormatResponse acknowledges the selection.
type SelectFormatResponse struct{}

// ConvertOneRequest converts a single entry. Format is optional when the
// entry already carries a selection.
type ConvertOneRequest struct {
	ID     string `json:"id"`
	Format string `json:"format,omitempty"`
}

// ConvertOneResponse carries the produced artifact.
type ConvertOneResponse struct {
	Artifact api.Artifact `json:"artifact"`
	Notices  []string     `json:"notices,omitempty"`
}

// ConvertAllRequest converts every entry with a selected format.
type ConvertAllRequest struct{}

// ConvertAllResponse summarizes the batch.
type ConvertAllResponse struct {
	Total     int            `json:"total"`
	Converted int            `json:"converted"`
	Artifacts []api.Artifact `json:"artifacts"`
	FailedID  string         `json:"failed_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Notices   []string       `json:"notices,omitempty"`
}

// ArtifactsRequest lists the session's conversion outputs.
type ArtifactsRequest struct{}

// ArtifactsResponse contains the artifacts in creation order.
type ArtifactsResponse struct {
	Artifacts []api.Artifact `json:"artifacts"`
}

// ClearSessionRequest empties the session.
type ClearSessionRequest struct{}

// ClearSessionResponse reports how many entries were removed.
type ClearSessionResponse struct {
	Removed int `json:"removed"`
}

// LoginRequest authenticates against the backend. Identifier may be a
// username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse carries the authenticated identity.
type LoginResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Notices  []string `json:"notices,omitempty"`
}

// LogoutRequest clears the backend session.
type LogoutRequest struct{}

// LogoutResponse acknowledges the logout.
type LogoutResponse struct{}

// RegisterRequest creates a new backend account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse acknowledges account creation.
type RegisterResponse struct{}

// WhoAmIRequest probes the authenticated identity.
type WhoAmIRequest struct{}

// WhoAmIResponse reports the current identity, if any.
type WhoAmIResponse struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
}

// ConvertedListRequest fetches the authenticated user's converted files.
type ConvertedListRequest struct{}

// ConvertedFile is one saved conversion output.
type ConvertedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ConvertedListResponse contains saved conversions.
type ConvertedListResponse struct {
	Files []ConvertedFile `json:"files"`
}

// DownloadRequest fetches one artifact into the download directory.
type DownloadRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DownloadResponse reports where the artifact was written.
type DownloadResponse struct {
	Path string `json:"path"`
}

// HistoryRequest lists recorded conversions, newest first.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryRecord is one remembered conversion.
type HistoryRecord struct {
	ID           int64  `json:"id"`
	SourceName   string `json:"source_name"`
	ArtifactName string `json:"artifact_name"`
	Format       string `json:"format"`
	DownloadURL  string `json:"download_url"`
	ConvertedAt  string `json:"converted_at"`
}

// HistoryResponse contains history records.
type HistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}

// HistoryClearRequest wipes the conversion history.
type HistoryClearRequest struct{}

// HistoryClearResponse reports the number of removed records.
type HistoryClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
