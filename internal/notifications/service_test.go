package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"morph/internal/config"
	"morph/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyConversionCompleted(context.Background(), "photo.pdf", "pdf"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "files registered",
			send: func(svc notifications.Service) error {
				return svc.NotifyFilesRegistered(context.Background(), 3, 1)
			},
			expectTitle:   "Morph - Files Registered",
			expectMessage: "Registered 3 file(s), 1 rejected",
			expectTags:    "morph,ingest,completed",
		},
		{
			name: "conversion completed",
			send: func(svc notifications.Service) error {
				return svc.NotifyConversionCompleted(context.Background(), "photo.pdf", "pdf")
			},
			expectTitle:   "Morph - Conversion Complete",
			expectMessage: "Converted to pdf: photo.pdf",
			expectTags:    "morph,convert,completed",
		},
		{
			name: "conversion failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyConversionFailed(context.Background(), "clip.mp4", "codec unavailable")
			},
			expectTitle:    "Morph - Conversion Failed",
			expectMessage:  "Conversion failed: clip.mp4\ncodec unavailable",
			expectTags:     "morph,convert,failed",
			expectPriority: "high",
		},
		{
			name: "batch completed with errors",
			send: func(svc notifications.Service) error {
				return svc.NotifyBatchCompleted(context.Background(), 2, 3, 90*time.Second)
			},
			expectTitle:   "Morph - Batch Complete (with errors)",
			expectMessage: "Batch conversion stopped: 2 of 3 converted in 1m30s",
			expectTags:    "morph,convert,batch",
		},
		{
			name: "session reset",
			send: func(svc notifications.Service) error {
				return svc.NotifySessionReset(context.Background(), 2)
			},
			expectTitle:   "Morph - Session Reset",
			expectMessage: "Signed in: session reset, 2 file(s) cleared. Re-upload to continue.",
			expectTags:    "morph,auth,reset",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("backend unreachable"), "upload")
			},
			expectTitle:    "Morph - Error",
			expectMessage:  "Error with upload: backend unreachable",
			expectTags:     "morph,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from rejected notification")
	}
}
