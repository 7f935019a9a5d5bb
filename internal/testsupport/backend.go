package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeBackend is an in-memory conversion backend for tests. It mirrors the
// real API surface: multipart upload, conversion, converted listing, and
// cookie-based authentication.
type FakeBackend struct {
	Server *httptest.Server

	mu            sync.Mutex
	nextID        int
	uploads       map[string]string
	converted     []convertedFile
	authenticated bool

	// FailUploads and FailConversions reject specific file names or ids
	// with a backend error message.
	FailUploads     map[string]string
	FailConversions map[string]string

	// EligibleFormats is returned for every upload.
	EligibleFormats []string
}

type convertedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NewFakeBackend starts a fake backend and registers cleanup.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		uploads:         make(map[string]string),
		FailUploads:     make(map[string]string),
		FailConversions: make(map[string]string),
		EligibleFormats: []string{"pdf", "webp", "png"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/files/upload", fb.handleUpload)
	mux.HandleFunc("POST /api/files/convert", fb.handleConvert)
	mux.HandleFunc("GET /api/files/converted", fb.handleConverted)
	mux.HandleFunc("GET /api/auth/me", fb.handleMe)
	mux.HandleFunc("POST /api/auth/login", fb.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", fb.handleLogout)
	mux.HandleFunc("POST /api/auth/register", fb.handleRegister)
	mux.HandleFunc("GET /download/", fb.handleDownload)

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the backend base URL.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// UploadCount reports how many uploads were accepted.
func (fb *FakeBackend) UploadCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.uploads)
}

// SetAuthenticated toggles the auth probe result without a login round-trip.
func (fb *FakeBackend) SetAuthenticated(v bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.authenticated = v
}

func (fb *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	file.Close()

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if message, ok := fb.FailUploads[header.Filename]; ok {
		writeError(w, http.StatusBadGateway, message)
		return
	}
	fb.nextID++
	id := fmt.Sprintf("file-%d", fb.nextID)
	fb.uploads[id] = header.Filename
	writeJSON(w, map[string]any{
		"fileId":          id,
		"eligibleFormats": fb.EligibleFormats,
	})
}

func (fb *FakeBackend) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID       string `json:"fileId"`
		TargetFormat string `json:"targetFormat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	name, ok := fb.uploads[req.FileID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown file id")
		return
	}
	if message, ok := fb.FailConversions[req.FileID]; ok {
		writeError(w, http.StatusUnprocessableEntity, message)
		return
	}

	base := strings.TrimSuffix(name, "."+extOf(name))
	outName := base + "." + req.TargetFormat
	url := "/download/" + outName
	fb.converted = append(fb.converted, convertedFile{Name: outName, URL: url})
	writeJSON(w, map[string]string{
		"fileName":    outName,
		"downloadUrl": url,
	})
}

func (fb *FakeBackend) handleConverted(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.isAuthenticated(r) {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, fb.converted)
}

func (fb *FakeBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.isAuthenticated(r) {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, map[string]string{"id": "user-1", "username": "tester", "email": "tester@example.com"})
}

func (fb *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "invalid credentials payload")
		return
	}
	fb.mu.Lock()
	fb.authenticated = true
	fb.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "fake-session", Path: "/"})
	writeJSON(w, map[string]string{"id": "user-1", "username": req.Identifier})
}

func (fb *FakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.authenticated = false
	fb.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (fb *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusCreated)
}

func (fb *FakeBackend) handleDownload(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "converted-bytes:%s", strings.TrimPrefix(r.URL.Path, "/download/"))
}

func (fb *FakeBackend) isAuthenticated(r *http.Request) bool {
	if cookie, err := r.Cookie("session"); err == nil && cookie.Value == "fake-session" {
		return true
	}
	return fb.authenticated
}

func extOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
