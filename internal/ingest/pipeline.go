package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"morph/internal/backend"
	"morph/internal/logging"
	"morph/internal/preview"
	"morph/internal/session"
)

// LoginNudge is shown at most once per ingestion batch while browsing as a
// guest.
const LoginNudge = "Log in to save your converted files for future use."

// Uploader is the slice of the backend client the pipeline needs.
type Uploader interface {
	Upload(ctx context.Context, name, mimeType string, data []byte) (*backend.UploadResult, error)
}

// Candidate is one file offered for ingestion.
type Candidate struct {
	Name string
	Data []byte
}

// Outcome records what happened to one candidate, in offer order.
type Outcome struct {
	Name    string
	EntryID string
	Err     error
}

// Accepted reports whether the candidate became a session entry.
func (o Outcome) Accepted() bool {
	return o.Err == nil
}

// Report summarizes one ingestion batch.
type Report struct {
	Outcomes   []Outcome
	LoginNudge string
}

// Accepted counts the candidates that became entries.
func (r *Report) Accepted() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Accepted() {
			n++
		}
	}
	return n
}

// Pipeline validates and registers incoming files. Validation happens
// locally, in a fixed order (capacity, duplicate name, size, type), and only
// candidates that pass every check generate backend traffic.
type Pipeline struct {
	session  *session.Session
	previews *preview.Manager
	uploader Uploader
	maxSize  int64
	logger   *slog.Logger
}

// NewPipeline wires an ingestion pipeline over the session aggregate.
func NewPipeline(sess *session.Session, previews *preview.Manager, uploader Uploader, maxSize int64, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		session:  sess,
		previews: previews,
		uploader: uploader,
		maxSize:  maxSize,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest processes candidates in order. A candidate that fails validation is
// skipped without affecting the rest, except for the capacity bound: once the
// session is full the batch aborts and every remaining candidate is rejected
// unattempted. Entries accepted before the abort stay in the session.
func (p *Pipeline) Ingest(ctx context.Context, candidates []Candidate) *Report {
	report := &Report{Outcomes: make([]Outcome, 0, len(candidates))}

	for i, candidate := range candidates {
		if !p.session.HasCapacity() {
			for _, remaining := range candidates[i:] {
				report.Outcomes = append(report.Outcomes, Outcome{
					Name: remaining.Name,
					Err: session.Wrap(session.ErrCapacityExceeded, "add",
						fmt.Sprintf("session is limited to %d files", p.session.MaxFiles()), nil),
				})
			}
			p.logger.Warn("ingestion aborted at capacity",
				logging.Int("max_files", p.session.MaxFiles()),
				logging.Int("skipped", len(candidates)-i))
			break
		}
		report.Outcomes = append(report.Outcomes, p.ingestOne(ctx, candidate))
	}

	if report.Accepted() > 0 && p.session.AuthMode() == session.AuthGuest {
		report.LoginNudge = LoginNudge
	}
	return report
}

func (p *Pipeline) ingestOne(ctx context.Context, candidate Candidate) Outcome {
	outcome := Outcome{Name: candidate.Name}

	if p.session.ContainsName(candidate.Name) {
		outcome.Err = session.Wrap(session.ErrDuplicateName, "add",
			fmt.Sprintf("%q is already in the session", candidate.Name), nil)
		return outcome
	}
	if size := int64(len(candidate.Data)); size > p.maxSize {
		outcome.Err = session.Wrap(session.ErrSizeExceeded, "add",
			fmt.Sprintf("%q is %d bytes; the limit is %d", candidate.Name, size, p.maxSize), nil)
		return outcome
	}
	mimeType, ok := Classify(candidate.Name)
	if !ok {
		outcome.Err = session.Wrap(session.ErrUnsupportedType, "add",
			fmt.Sprintf("%q is not a supported file type", candidate.Name), nil)
		return outcome
	}

	handle, err := p.previews.Acquire(candidate.Name, candidate.Data)
	if err != nil {
		outcome.Err = session.Wrap(session.ErrUploadFailed, "add", "stage preview", err)
		return outcome
	}

	result, err := p.uploader.Upload(ctx, candidate.Name, mimeType, candidate.Data)
	if err != nil {
		if releaseErr := p.previews.Release(handle.ID); releaseErr != nil {
			p.logger.Warn("failed to release preview after rejected upload",
				logging.Error(releaseErr))
		}
		outcome.Err = session.Wrap(session.ErrUploadFailed, "add", candidate.Name, err)
		p.logger.Warn("upload rejected",
			logging.String("name", candidate.Name),
			logging.Error(err))
		return outcome
	}

	entry := &session.Entry{
		ID:              result.FileID,
		Name:            candidate.Name,
		SizeBytes:       int64(len(candidate.Data)),
		MimeType:        mimeType,
		PreviewID:       handle.ID,
		EligibleFormats: result.EligibleFormats,
		Status:          session.StatusRegistered,
		TextExcerpt:     Excerpt(mimeType, candidate.Data),
		AddedAt:         time.Now(),
	}
	if err := p.session.Append(entry); err != nil {
		if releaseErr := p.previews.Release(handle.ID); releaseErr != nil {
			p.logger.Warn("failed to release preview after rejected append",
				logging.Error(releaseErr))
		}
		outcome.Err = err
		return outcome
	}

	outcome.EntryID = entry.ID
	p.logger.Info("file registered",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.String("name", entry.Name),
		logging.Int64("size_bytes", entry.SizeBytes),
		logging.String("mime_type", entry.MimeType))
	return outcome
}

// Remove deletes the entry from the session and releases its preview handle.
// Removing an unknown id is a no-op; removing a converting entry fails.
func (p *Pipeline) Remove(id string) error {
	entry, err := p.session.Remove(id)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	if entry.PreviewID != "" {
		if err := p.previews.Release(entry.PreviewID); err != nil {
			p.logger.Warn("failed to release preview on remove",
				logging.String(logging.FieldEntryID, id),
				logging.Error(err))
		}
	}
	p.logger.Info("file removed",
		logging.String(logging.FieldEntryID, id),
		logging.String("name", entry.Name))
	return nil
}
