package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"morph/internal/logging"
)

const userAgent = "Morph-Go/0.1.0"

// ErrUnauthenticated marks auth-probe and listing failures caused by a
// missing or expired session.
var ErrUnauthenticated = errors.New("not authenticated")

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// APIError carries a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return e.Message
}

// Client talks to the conversion backend over HTTP. Session cookies are
// handled by the underlying http.Client's jar and optionally persisted to
// disk between runs.
type Client struct {
	baseURL string
	http    HTTPDoer
	jar     *Jar
	logger  *slog.Logger
	timeout time.Duration
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP transport, typically for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

// WithTimeout sets the per-request timeout used by the default transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithCookieFile persists session cookies to the given path.
func WithCookieFile(path string) Option {
	return func(c *Client) {
		jar, err := NewJar(path, c.baseURL)
		if err != nil {
			c.logger.Warn("cookie jar unavailable; session will not persist",
				logging.Error(err))
			return
		}
		c.jar = jar
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.NewComponentLogger(logger, "backend") }
}

// NewClient constructs a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.NewNop(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		client := &http.Client{Timeout: c.timeout}
		if c.jar != nil {
			client.Jar = c.jar
		}
		c.http = client
	}
	return c
}

// PersistCookies writes the session cookies to disk when a cookie file is
// configured.
func (c *Client) PersistCookies() error {
	if c.jar == nil {
		return nil
	}
	return c.jar.Save()
}

// Upload registers the raw file bytes with the backend and returns the
// assigned id plus eligible conversion targets.
func (c *Client) Upload(ctx context.Context, name, mimeType string, data []byte) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if strings.TrimSpace(mimeType) != "" {
		header.Set("Content-Type", mimeType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	if result.FileID == "" {
		return nil, errors.New("upload response missing fileId")
	}
	return &result, nil
}

// Convert requests a conversion of a registered file into targetFormat.
func (c *Client) Convert(ctx context.Context, fileID, targetFormat string) (*ConvertResult, error) {
	var result ConvertResult
	err := c.doJSON(ctx, http.MethodPost, "/api/files/convert",
		convertRequest{FileID: fileID, TargetFormat: targetFormat}, &result)
	if err != nil {
		return nil, err
	}
	if result.DownloadURL == "" {
		return nil, errors.New("convert response missing downloadUrl")
	}
	return &result, nil
}

// ListConverted fetches the authenticated user's converted files.
func (c *Client) ListConverted(ctx context.Context) ([]ConvertedFile, error) {
	var files []ConvertedFile
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/converted", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Me probes the authentication service. A non-2xx response maps to
// ErrUnauthenticated rather than a hard failure.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var identity Identity
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &identity)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, apiErr.Error())
		}
		return nil, err
	}
	return &identity, nil
}

// Login authenticates with the backend; identifier may be a username or
// email address.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Identity, error) {
	var identity Identity
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login",
		loginRequest{Identifier: identifier, Password: password}, &identity)
	if err != nil {
		return nil, err
	}
	if err := c.PersistCookies(); err != nil {
		c.logger.Warn("failed to persist session cookies", logging.Error(err))
	}
	return &identity, nil
}

// Logout clears the backend session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	if c.jar != nil {
		c.jar.Clear()
		if err := c.jar.Save(); err != nil {
			c.logger.Warn("failed to persist session cookies", logging.Error(err))
		}
	}
	return nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register",
		registerRequest{Username: username, Email: email, Password: password}, nil)
}

// Fetch retrieves an artifact by its download URL. Relative URLs are
// resolved against the backend base URL. The caller owns the returned body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = c.baseURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("fetch %s returned %d", rawURL, resp.StatusCode)}
	}
	return resp.Body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed errorResponse
	message := ""
	if err := json.Unmarshal(raw, &parsed); err == nil {
		message = strings.TrimSpace(parsed.Error)
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
