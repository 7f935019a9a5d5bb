package authwatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"morph/internal/backend"
	"morph/internal/logging"
	"morph/internal/preview"
	"morph/internal/session"
)

// ReuploadNotice is emitted once per guest-to-authenticated edge when the
// session held files at the moment of the reset.
const ReuploadNotice = "Please re-upload your files to continue as a logged-in user."

// Prober is the slice of the backend client the watcher needs.
type Prober interface {
	Me(ctx context.Context) (*backend.Identity, error)
}

// Watcher probes the authentication service on a fixed period and keeps the
// session's auth mode current. A guest-to-authenticated transition while the
// session holds entries triggers an atomic reset: preview handles released,
// entries and artifacts cleared, one re-upload notice emitted. The reset
// fires on the edge only, never on subsequent successful probes.
type Watcher struct {
	session  *session.Session
	previews *preview.Manager
	prober   Prober
	logger   *slog.Logger
	interval time.Duration
	onReset  func(removed int, notice string)

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher wires an auth watcher. onReset may be nil; it fires after each
// sign-in reset with the number of cleared entries and the user notice.
func NewWatcher(sess *session.Session, previews *preview.Manager, prober Prober, interval time.Duration, logger *slog.Logger, onReset func(removed int, notice string)) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		session:  sess,
		previews: previews,
		prober:   prober,
		logger:   logging.NewComponentLogger(logger, "authwatch"),
		interval: interval,
		onReset:  onReset,
	}
}

// Start begins probing until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("auth watcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop halts probing and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	w.Probe(w.ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Probe(w.ctx)
		}
	}
}

// Probe runs one authentication check and applies the transition rules. It
// is exported so a login action can refresh the mode without waiting a tick.
func (w *Watcher) Probe(ctx context.Context) session.AuthMode {
	probeCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	mode := session.AuthAuthenticated
	_, err := w.prober.Me(probeCtx)
	if err != nil {
		// Any failure, network included, counts as not signed in.
		mode = session.AuthGuest
		if !errors.Is(err, backend.ErrUnauthenticated) {
			w.logger.Debug("auth probe failed", logging.Error(err))
		}
	}

	previous := w.session.SetAuthMode(mode)
	if mode == session.AuthAuthenticated && previous != session.AuthAuthenticated {
		w.reset()
	}
	return mode
}

func (w *Watcher) reset() {
	if w.session.Len() == 0 {
		w.logger.Debug("signed in with an empty session; nothing to reset")
		return
	}

	removed := w.session.Reset()
	released := 0
	for _, entry := range removed {
		if entry.PreviewID == "" {
			continue
		}
		if err := w.previews.Release(entry.PreviewID); err != nil {
			w.logger.Warn("failed to release preview during reset",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.Error(err))
			continue
		}
		released++
	}

	w.logger.Info("session reset after sign-in",
		logging.String(logging.FieldEventType, "session_reset"),
		logging.Int("entries_cleared", len(removed)),
		logging.Int("previews_released", released))
	if w.onReset != nil {
		w.onReset(len(removed), ReuploadNotice)
	}
}
