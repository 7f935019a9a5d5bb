package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Jar wraps the standard cookie jar with JSON persistence so backend
// sessions survive daemon restarts. Only cookies scoped to the backend base
// URL are written to disk.
type Jar struct {
	mu   sync.Mutex
	jar  *cookiejar.Jar
	path string
	base *url.URL
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

// NewJar creates a persistent jar backed by the file at path. An existing
// file is loaded; a missing one is not an error.
func NewJar(path, baseURL string) (*Jar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	j := &Jar{jar: inner, path: path, base: base}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Clear drops every cookie for the backend base URL.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, cookie := range j.jar.Cookies(j.base) {
		j.jar.SetCookies(j.base, []*http.Cookie{{
			Name:   cookie.Name,
			Value:  "",
			MaxAge: -1,
		}})
	}
}

// Save writes the backend session cookies to the jar's file. The write is
// atomic so a crash never leaves a truncated jar behind.
func (j *Jar) Save() error {
	j.mu.Lock()
	cookies := j.jar.Cookies(j.base)
	j.mu.Unlock()

	stored := make([]storedCookie, 0, len(cookies))
	for _, cookie := range cookies {
		stored = append(stored, storedCookie{Name: cookie.Name, Value: cookie.Value, Path: cookie.Path})
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace cookie file: %w", err)
	}
	return nil
}

func (j *Jar) load() error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cookie file: %w", err)
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse cookie file: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, cookie := range stored {
		cookies = append(cookies, &http.Cookie{Name: cookie.Name, Value: cookie.Value, Path: cookie.Path})
	}
	j.mu.Lock()
	j.jar.SetCookies(j.base, cookies)
	j.mu.Unlock()
	return nil
}
