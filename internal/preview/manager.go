package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"morph/internal/logging"
)

// ErrUnknownHandle is returned when releasing a handle that was never
// acquired or was already released. Double release is a programming error the
// manager refuses to hide.
var ErrUnknownHandle = errors.New("unknown preview handle")

// Handle is an ephemeral, session-scoped reference to a file's bytes staged
// on local disk for rendering. It is distinct from the backend-assigned file
// identifier and is owned exclusively by one session entry.
type Handle struct {
	ID   string
	Path string
}

// Manager allocates and revokes preview handles. Every handle acquired must
// be released exactly once: on entry removal, on session reset, or on
// teardown via ReleaseAll. Acquire/release counts are tracked so tests can
// verify the books balance.
type Manager struct {
	mu      sync.Mutex
	dir     string
	logger  *slog.Logger
	handles map[string]string

	acquired int
	released int
}

// NewManager creates a manager staging previews under dir.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Manager{
		dir:     dir,
		logger:  logging.NewComponentLogger(logger, "preview"),
		handles: make(map[string]string),
	}, nil
}

// Acquire stages the raw bytes and returns a fresh handle. The original name
// only contributes its extension so the rendering layer can infer a type.
func (m *Manager) Acquire(name string, data []byte) (Handle, error) {
	id := uuid.NewString()
	path := filepath.Join(m.dir, id+filepath.Ext(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("stage preview bytes: %w", err)
	}

	m.mu.Lock()
	m.handles[id] = path
	m.acquired++
	m.mu.Unlock()

	m.logger.Debug("preview handle acquired",
		logging.String("handle_id", id),
		logging.Int("size_bytes", len(data)))
	return Handle{ID: id, Path: path}, nil
}

// Release revokes the handle and deletes its staged bytes. Releasing an
// unknown or already-released handle fails.
func (m *Manager) Release(id string) error {
	m.mu.Lock()
	path, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
		m.released++
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, id)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged preview: %w", err)
	}
	m.logger.Debug("preview handle released", logging.String("handle_id", id))
	return nil
}

// ReleaseAll revokes every outstanding handle and returns how many were
// released. Used on session teardown.
func (m *Manager) ReleaseAll() int {
	m.mu.Lock()
	outstanding := make(map[string]string, len(m.handles))
	for id, path := range m.handles {
		outstanding[id] = path
	}
	clear(m.handles)
	m.released += len(outstanding)
	m.mu.Unlock()

	for id, path := range outstanding {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("failed to remove staged preview",
				logging.String("handle_id", id),
				logging.Error(err))
		}
	}
	return len(outstanding)
}

// Path resolves a handle id to its staged file location.
func (m *Manager) Path(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, ok := m.handles[id]
	return path, ok
}

// Outstanding returns the number of handles currently held.
func (m *Manager) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Counts reports lifetime acquire and release totals.
func (m *Manager) Counts() (acquired, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}
