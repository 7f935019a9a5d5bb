package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"morph/internal/authwatch"
	"morph/internal/backend"
	"morph/internal/config"
	"morph/internal/convert"
	"morph/internal/history"
	"morph/internal/ingest"
	"morph/internal/logging"
	"morph/internal/notifications"
	"morph/internal/preview"
	"morph/internal/session"
)

// Daemon owns the conversion session and every service operating on it. It
// enforces single-instance execution via a file lock and buffers one-time
// user notices until an IPC caller drains them.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	sess     *session.Session
	previews *preview.Manager
	client   *backend.Client
	pipeline *ingest.Pipeline
	coord    *convert.Coordinator
	watcher  *authwatch.Watcher
	notifier notifications.Service
	store    *history.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	noticeMu sync.Mutex
	notices  []string

	progressMu sync.Mutex
	progress   convert.Progress
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	AuthMode      string
	Entries       int
	Artifacts     int
	ActiveIDs     []string
	Progress      convert.Progress
	LockFilePath  string
	SocketPath    string
	HistoryDBPath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	sess := session.New(cfg.Session.MaxFiles)
	previews, err := preview.NewManager(cfg.Paths.StagingDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create preview manager: %w", err)
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	client := backend.NewClient(cfg.Server.BaseURL,
		backend.WithTimeout(cfg.RequestTimeout()),
		backend.WithCookieFile(cfg.CookiePath()),
		backend.WithLogger(logger))

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		sess:     sess,
		previews: previews,
		client:   client,
		notifier: notifications.NewService(cfg),
		store:    store,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.pipeline = ingest.NewPipeline(sess, previews, client, cfg.MaxSizeBytes(), logger)
	d.coord = convert.NewCoordinator(sess, client, logger, d.recordProgress)
	d.watcher = authwatch.NewWatcher(sess, previews, client, cfg.ProbeInterval(), logger, d.handleReset)
	return d, nil
}

// Start acquires the daemon lock and launches the auth watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another morph daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.watcher.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start auth watcher: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("morph daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the auth watcher and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.watcher.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("morph daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if released := d.previews.ReleaseAll(); released > 0 {
		d.logger.Debug("released outstanding previews on shutdown",
			logging.Int("released", released))
	}
	if err := d.client.PersistCookies(); err != nil {
		d.logger.Warn("failed to persist cookies on shutdown", logging.Error(err))
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// FileInput is one file offered for ingestion with its bytes already read.
type FileInput struct {
	Name string
	Data []byte
}

// IngestPaths reads local files and feeds them through the ingestion
// pipeline. Unreadable paths are reported as failed outcomes, kept at their
// position in the offered order.
func (d *Daemon) IngestPaths(ctx context.Context, paths []string) (*ingest.Report, error) {
	inputs := make([]FileInput, 0, len(paths))
	unreadable := make(map[int]ingest.Outcome)
	offered := 0
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		name := filepath.Base(trimmed)
		data, err := os.ReadFile(trimmed)
		if err != nil {
			unreadable[offered] = ingest.Outcome{
				Name: name,
				Err:  fmt.Errorf("read file: %w", err),
			}
		} else {
			inputs = append(inputs, FileInput{Name: name, Data: data})
		}
		offered++
	}
	report, err := d.Ingest(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(unreadable) == 0 {
		return report, nil
	}

	merged := make([]ingest.Outcome, 0, offered)
	next := 0
	for i := 0; i < offered; i++ {
		if outcome, ok := unreadable[i]; ok {
			merged = append(merged, outcome)
			continue
		}
		if next < len(report.Outcomes) {
			merged = append(merged, report.Outcomes[next])
			next++
		}
	}
	merged = append(merged, report.Outcomes[next:]...)
	report.Outcomes = merged
	return report, nil
}

// Ingest registers files with the session.
func (d *Daemon) Ingest(ctx context.Context, inputs []FileInput) (*ingest.Report, error) {
	if len(inputs) == 0 {
		return &ingest.Report{}, nil
	}
	candidates := make([]ingest.Candidate, 0, len(inputs))
	for _, input := range inputs {
		candidates = append(candidates, ingest.Candidate{Name: input.Name, Data: input.Data})
	}

	report := d.pipeline.Ingest(ctx, candidates)
	if report.LoginNudge != "" {
		d.pushNotice(report.LoginNudge)
	}
	if accepted := report.Accepted(); accepted > 0 {
		rejected := len(report.Outcomes) - accepted
		if err := d.notifier.NotifyFilesRegistered(ctx, accepted, rejected); err != nil {
			d.logger.Warn("failed to send registration notification", logging.Error(err))
		}
	}
	return report, nil
}

// Remove deletes an entry and releases its preview handle.
func (d *Daemon) Remove(id string) error {
	return d.pipeline.Remove(id)
}

// SelectFormat sets or clears an entry's target format.
func (d *Daemon) SelectFormat(id, format string) error {
	return d.sess.SelectFormat(id, format)
}

// ConvertOne converts a single entry.
func (d *Daemon) ConvertOne(ctx context.Context, id, format string) (*session.Artifact, error) {
	artifact, err := d.coord.ConvertOne(ctx, id, format)
	if err != nil {
		d.notifyConversionError(ctx, id, err)
		return nil, err
	}
	d.recordArtifact(ctx, *artifact)
	if notifyErr := d.notifier.NotifyConversionCompleted(ctx, artifact.Name, artifact.Format); notifyErr != nil {
		d.logger.Warn("failed to send conversion notification", logging.Error(notifyErr))
	}
	return artifact, nil
}

// ConvertAll converts every entry with a selected format.
func (d *Daemon) ConvertAll(ctx context.Context) (*convert.Summary, error) {
	started := time.Now()
	summary, err := d.coord.ConvertAll(ctx)
	if summary != nil {
		for _, artifact := range summary.Artifacts {
			d.recordArtifact(ctx, artifact)
		}
		if notifyErr := d.notifier.NotifyBatchCompleted(ctx, summary.Converted, summary.Total, time.Since(started)); notifyErr != nil {
			d.logger.Warn("failed to send batch notification", logging.Error(notifyErr))
		}
	}
	if err != nil {
		failedID := ""
		if summary != nil {
			failedID = summary.FailedID
		}
		d.notifyConversionError(ctx, failedID, err)
	}
	return summary, err
}

// Snapshot returns a deep copy of the session state.
func (d *Daemon) Snapshot() session.Snapshot {
	return d.sess.Snapshot()
}

// PreviewPath resolves a preview handle to its staged file.
func (d *Daemon) PreviewPath(previewID string) (string, bool) {
	return d.previews.Path(previewID)
}

// ClearSession empties the session and releases every entry's preview
// handle. It waits for any in-flight conversion to finish first.
func (d *Daemon) ClearSession() int {
	removed := d.sess.Reset()
	for _, entry := range removed {
		if entry.PreviewID == "" {
			continue
		}
		if err := d.previews.Release(entry.PreviewID); err != nil {
			d.logger.Warn("failed to release preview on clear",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.Error(err))
		}
	}
	d.logger.Info("session cleared", logging.Int("entries_removed", len(removed)))
	return len(removed)
}

// Login authenticates with the backend and refreshes the auth mode
// immediately, which applies the sign-in reset when entries exist.
func (d *Daemon) Login(ctx context.Context, identifier, password string) (*backend.Identity, error) {
	identity, err := d.client.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	d.watcher.Probe(ctx)
	return identity, nil
}

// Logout clears the backend session and refreshes the auth mode.
func (d *Daemon) Logout(ctx context.Context) error {
	if err := d.client.Logout(ctx); err != nil {
		return err
	}
	d.watcher.Probe(ctx)
	return nil
}

// Register creates a new backend account.
func (d *Daemon) Register(ctx context.Context, username, email, password string) error {
	return d.client.Register(ctx, username, email, password)
}

// WhoAmI returns the authenticated identity, or ErrUnauthenticated.
func (d *Daemon) WhoAmI(ctx context.Context) (*backend.Identity, error) {
	return d.client.Me(ctx)
}

// ListConverted fetches the authenticated user's converted files from the
// backend.
func (d *Daemon) ListConverted(ctx context.Context) ([]backend.ConvertedFile, error) {
	return d.client.ListConverted(ctx)
}

// Download fetches an artifact into the configured download directory and
// returns the written path.
func (d *Daemon) Download(ctx context.Context, name, url string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return "", errors.New("artifact name is required")
	}
	body, err := d.client.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	dir := d.cfg.Session.DownloadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	dest := filepath.Join(dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write download file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close download file: %w", err)
	}
	d.logger.Info("artifact downloaded",
		logging.String("artifact", name),
		logging.String("path", dest))
	return dest, nil
}

// History lists recorded conversions, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Record, error) {
	return d.store.List(ctx, limit)
}

// ClearHistory wipes the conversion history.
func (d *Daemon) ClearHistory(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// DrainNotices returns and clears the pending one-time user notices.
func (d *Daemon) DrainNotices() []string {
	d.noticeMu.Lock()
	defer d.noticeMu.Unlock()
	notices := d.notices
	d.notices = nil
	return notices
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	snap := d.sess.Snapshot()
	d.progressMu.Lock()
	progress := d.progress
	d.progressMu.Unlock()
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		AuthMode:      string(snap.AuthMode),
		Entries:       len(snap.Entries),
		Artifacts:     len(snap.Artifacts),
		ActiveIDs:     snap.ActiveIDs,
		Progress:      progress,
		LockFilePath:  d.lockPath,
		SocketPath:    d.cfg.SocketPath(),
		HistoryDBPath: d.cfg.HistoryDBPath(),
	}
}

func (d *Daemon) pushNotice(notice string) {
	if strings.TrimSpace(notice) == "" {
		return
	}
	d.noticeMu.Lock()
	d.notices = append(d.notices, notice)
	d.noticeMu.Unlock()
}

func (d *Daemon) handleReset(removed int, notice string) {
	d.pushNotice(notice)
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := d.store.Clear(ctx); err != nil {
		d.logger.Warn("failed to clear history on reset", logging.Error(err))
	}
	if err := d.notifier.NotifySessionReset(ctx, removed); err != nil {
		d.logger.Warn("failed to send reset notification", logging.Error(err))
	}
}

func (d *Daemon) recordProgress(progress convert.Progress) {
	d.progressMu.Lock()
	d.progress = progress
	d.progressMu.Unlock()
}

func (d *Daemon) recordArtifact(ctx context.Context, artifact session.Artifact) {
	sourceName := artifact.SourceID
	for _, entry := range d.sess.Snapshot().Entries {
		if entry.ID == artifact.SourceID {
			sourceName = entry.Name
			break
		}
	}
	record := history.Record{
		SourceName:   sourceName,
		ArtifactName: artifact.Name,
		Format:       artifact.Format,
		DownloadURL:  artifact.DownloadURL,
		ConvertedAt:  artifact.CreatedAt,
	}
	if _, err := d.store.Add(ctx, record); err != nil {
		d.logger.Warn("failed to record conversion history", logging.Error(err))
	}
}

func (d *Daemon) notifyConversionError(ctx context.Context, id string, err error) {
	if errors.Is(err, session.ErrConversionInProgress) || errors.Is(err, session.ErrNothingToConvert) ||
		errors.Is(err, session.ErrFormatNotEligible) || errors.Is(err, session.ErrEntryNotFound) {
		return
	}
	name := id
	for _, entry := range d.sess.Snapshot().Entries {
		if entry.ID == id {
			name = entry.Name
			break
		}
	}
	if notifyErr := d.notifier.NotifyConversionFailed(ctx, name, err.Error()); notifyErr != nil {
		d.logger.Warn("failed to send failure notification", logging.Error(notifyErr))
	}
}
