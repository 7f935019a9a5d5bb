package session

import (
	"fmt"
	"sync"
)

// Session is the aggregate root for one conversion session: the ordered set
// of entries, completed artifacts, authentication mode, and the active
// conversion job marker. All mutation goes through its methods so the
// invariants (capacity bound, unique names, single job) are enforced in one
// place.
//
// The active set is the sole conversion lock. Starting a job while it is
// non-empty fails fast with ErrConversionInProgress; Reset blocks until the
// set empties so an auth-triggered wipe never destroys an entry whose
// conversion is in flight.
type Session struct {
	mu   sync.Mutex
	idle *sync.Cond

	maxFiles int

	entries   []*Entry
	artifacts []Artifact
	authMode  AuthMode
	active    map[string]struct{}
}

// Selection pairs an entry with its chosen target format.
type Selection struct {
	ID     string
	Format string
}

// New constructs an empty session bounded to maxFiles entries.
func New(maxFiles int) *Session {
	if maxFiles <= 0 {
		maxFiles = 1
	}
	s := &Session{
		maxFiles: maxFiles,
		authMode: AuthUnknown,
		active:   make(map[string]struct{}),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// MaxFiles returns the configured entry bound.
func (s *Session) MaxFiles() int {
	return s.maxFiles
}

// Len returns the current number of entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// HasCapacity reports whether another entry may be added.
func (s *Session) HasCapacity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) < s.maxFiles
}

// ContainsName reports whether an entry with the exact name exists.
func (s *Session) ContainsName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsNameLocked(name)
}

func (s *Session) containsNameLocked(name string) bool {
	for _, entry := range s.entries {
		if entry.Name == name {
			return true
		}
	}
	return false
}

// Append adds a registered entry, enforcing the capacity and unique-name
// invariants.
func (s *Session) Append(entry *Entry) error {
	if entry == nil {
		return Wrap(ErrEntryNotFound, "add", "nil entry", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxFiles {
		return Wrap(ErrCapacityExceeded, "add", fmt.Sprintf("session already holds %d files", s.maxFiles), nil)
	}
	if s.containsNameLocked(entry.Name) {
		return Wrap(ErrDuplicateName, "add", fmt.Sprintf("%q is already in the session", entry.Name), nil)
	}
	if entry.Status == "" {
		entry.Status = StatusRegistered
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Remove deletes the entry and returns it so the caller can release its
// preview handle. Removing an unknown id is a no-op. Removing an entry whose
// conversion is in flight is refused.
func (s *Session) Remove(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, converting := s.active[id]; converting {
		return nil, Wrap(ErrConversionInProgress, "remove", "entry is converting", nil)
	}
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return entry, nil
		}
	}
	return nil, nil
}

// SelectFormat sets (or clears, with an empty format) the entry's conversion
// target, validating it against the backend-provided eligible formats.
func (s *Session) SelectFormat(id, format string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.findLocked(id)
	if !ok {
		return Wrap(ErrEntryNotFound, "select format", id, nil)
	}
	if format == "" {
		entry.SelectedFormat = ""
		return nil
	}
	if !entry.EligibleFor(format) {
		return Wrap(ErrFormatNotEligible, "select format", fmt.Sprintf("%q is not eligible for %q", entry.Name, format), nil)
	}
	entry.SelectedFormat = format
	return nil
}

func (s *Session) findLocked(id string) (*Entry, bool) {
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return nil, false
}

// Selections returns, in entry order, every entry with a selected format.
func (s *Session) Selections() []Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Selection, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.SelectedFormat != "" {
			out = append(out, Selection{ID: entry.ID, Format: entry.SelectedFormat})
		}
	}
	return out
}

// BeginJob admits a conversion job for the given entry ids. It fails fast
// with ErrConversionInProgress while another job holds the lock and leaves no
// state behind on any failure.
func (s *Session) BeginJob(ids ...string) error {
	if len(ids) == 0 {
		return Wrap(ErrNothingToConvert, "convert", "no entries selected", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) > 0 {
		return Wrap(ErrConversionInProgress, "convert", "another conversion is running", nil)
	}
	for _, id := range ids {
		if _, ok := s.findLocked(id); !ok {
			return Wrap(ErrEntryNotFound, "convert", id, nil)
		}
	}
	for _, id := range ids {
		s.active[id] = struct{}{}
	}
	return nil
}

// EndJob releases the conversion lock and wakes any waiter blocked in Reset.
func (s *Session) EndJob() {
	s.mu.Lock()
	clear(s.active)
	s.mu.Unlock()
	s.idle.Broadcast()
}

// ActiveIDs returns the ids currently holding the conversion lock.
func (s *Session) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIDsLocked()
}

func (s *Session) activeIDsLocked() []string {
	if len(s.active) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.active))
	for _, entry := range s.entries {
		if _, ok := s.active[entry.ID]; ok {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}

// MarkConverting transitions the entry to Converting. The entry must be part
// of the active job.
func (s *Session) MarkConverting(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; !ok {
		return Wrap(ErrEntryNotFound, "convert", fmt.Sprintf("%s is not part of the active job", id), nil)
	}
	entry, ok := s.findLocked(id)
	if !ok {
		return Wrap(ErrEntryNotFound, "convert", id, nil)
	}
	entry.Status = StatusConverting
	entry.ErrorMessage = ""
	return nil
}

// RecordSuccess marks the entry Converted and appends the artifact.
func (s *Session) RecordSuccess(id string, artifact Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.findLocked(id)
	if !ok {
		return Wrap(ErrEntryNotFound, "convert", id, nil)
	}
	entry.SetConverted()
	s.artifacts = append(s.artifacts, artifact)
	return nil
}

// RecordFailure marks the entry Failed with the backend-provided message.
func (s *Session) RecordFailure(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.findLocked(id)
	if !ok {
		return Wrap(ErrEntryNotFound, "convert", id, nil)
	}
	entry.SetFailed(message)
	return nil
}

// AuthMode returns the current authentication mode.
func (s *Session) AuthMode() AuthMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authMode
}

// SetAuthMode records the probe result and returns the previous mode so the
// caller can detect edges.
func (s *Session) SetAuthMode(mode AuthMode) AuthMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.authMode
	s.authMode = mode
	return previous
}

// Reset atomically clears entries and artifacts and returns the removed
// entries so their preview handles can be released. It blocks until any
// in-flight conversion job has released the lock.
func (s *Session) Reset() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.active) > 0 {
		s.idle.Wait()
	}

	removed := s.entries
	s.entries = nil
	s.artifacts = nil
	return removed
}

// Snapshot returns a deep read-only copy for the rendering layer.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Entries:   make([]Entry, 0, len(s.entries)),
		Artifacts: make([]Artifact, len(s.artifacts)),
		AuthMode:  s.authMode,
		ActiveIDs: s.activeIDsLocked(),
	}
	for _, entry := range s.entries {
		cp := *entry
		cp.EligibleFormats = append([]string(nil), entry.EligibleFormats...)
		snap.Entries = append(snap.Entries, cp)
	}
	copy(snap.Artifacts, s.artifacts)
	return snap
}
