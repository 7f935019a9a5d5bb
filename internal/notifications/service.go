package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"morph/internal/config"
)

const userAgent = "Morph-Go/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyFilesRegistered(ctx context.Context, accepted, rejected int) error
	NotifyConversionCompleted(ctx context.Context, fileName, format string) error
	NotifyConversionFailed(ctx context.Context, fileName, reason string) error
	NotifyBatchCompleted(ctx context.Context, converted, total int, duration time.Duration) error
	NotifySessionReset(ctx context.Context, clearedEntries int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyFilesRegistered(ctx context.Context, accepted, rejected int) error {
	message := fmt.Sprintf("Registered %d file(s)", accepted)
	if rejected > 0 {
		message = fmt.Sprintf("%s, %d rejected", message, rejected)
	}
	data := payload{
		title:   "Morph - Files Registered",
		message: message,
		tags:    []string{"morph", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, fileName, format string) error {
	fileName = strings.TrimSpace(fileName)
	format = strings.TrimSpace(format)
	data := payload{
		title:   "Morph - Conversion Complete",
		message: fmt.Sprintf("Converted to %s: %s", format, fileName),
		tags:    []string{"morph", "convert", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionFailed(ctx context.Context, fileName, reason string) error {
	fileName = strings.TrimSpace(fileName)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Morph - Conversion Failed",
		message:  fmt.Sprintf("Conversion failed: %s\n%s", fileName, reason),
		tags:     []string{"morph", "convert", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, converted, total int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if converted == total {
		title = "Morph - Batch Complete"
		message = fmt.Sprintf("Batch conversion complete: %d file(s) in %s", converted, durationText)
	} else {
		title = "Morph - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch conversion stopped: %d of %d converted in %s", converted, total, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"morph", "convert", "batch"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionReset(ctx context.Context, clearedEntries int) error {
	data := payload{
		title:   "Morph - Session Reset",
		message: fmt.Sprintf("Signed in: session reset, %d file(s) cleared. Re-upload to continue.", clearedEntries),
		tags:    []string{"morph", "auth", "reset"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Morph - Error",
		message:  builder.String(),
		tags:     []string{"morph", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Morph - Test",
		message:  "Notification system test",
		tags:     []string{"morph", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyFilesRegistered(context.Context, int, int) error               { return nil }
func (noopService) NotifyConversionCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyConversionFailed(context.Context, string, string) error        { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifySessionReset(context.Context, int) error                       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
