package convert

import (
	"context"
	"log/slog"
	"time"

	"morph/internal/backend"
	"morph/internal/logging"
	"morph/internal/session"
)

// Converter is the slice of the backend client the coordinator needs.
type Converter interface {
	Convert(ctx context.Context, fileID, targetFormat string) (*backend.ConvertResult, error)
}

// Progress reports batch completion after each finished conversion.
type Progress struct {
	Done    int
	Total   int
	Percent int
	Current string
}

// Summary describes the outcome of a batch conversion.
type Summary struct {
	Total     int
	Converted int
	Artifacts []session.Artifact
	FailedID  string
}

// Coordinator runs conversions against the backend under the session's
// single-job lock. Jobs are admitted fail-fast: a second conversion attempted
// while one is running returns ErrConversionInProgress immediately.
type Coordinator struct {
	session    *session.Session
	converter  Converter
	logger     *slog.Logger
	onProgress func(Progress)
}

// NewCoordinator wires a coordinator over the session aggregate. onProgress
// may be nil.
func NewCoordinator(sess *session.Session, converter Converter, logger *slog.Logger, onProgress func(Progress)) *Coordinator {
	return &Coordinator{
		session:    sess,
		converter:  converter,
		logger:     logging.NewComponentLogger(logger, "convert"),
		onProgress: onProgress,
	}
}

// ConvertOne converts a single entry. A non-empty format is selected once the
// job lock is held (validated against the entry's eligible formats); with an
// empty format the entry's existing selection is used, and a missing selection
// is an error. Admission failure leaves the entry untouched, including its
// format selection.
func (c *Coordinator) ConvertOne(ctx context.Context, id, format string) (*session.Artifact, error) {
	if err := c.session.BeginJob(id); err != nil {
		return nil, err
	}
	defer c.session.EndJob()

	if format != "" {
		if err := c.session.SelectFormat(id, format); err != nil {
			return nil, err
		}
	}
	target, err := c.selectedFormat(id)
	if err != nil {
		return nil, err
	}

	c.report(Progress{Done: 0, Total: 1, Percent: 0, Current: id})
	artifact, err := c.convertEntry(ctx, id, target)
	if err != nil {
		return nil, err
	}
	c.report(Progress{Done: 1, Total: 1, Percent: 100, Current: id})
	return artifact, nil
}

// ConvertAll converts every entry with a selected format, sequentially and in
// entry order. The batch stops at the first failure; conversions completed
// before the failure keep their artifacts and statuses.
func (c *Coordinator) ConvertAll(ctx context.Context) (*Summary, error) {
	selections := c.session.Selections()
	if len(selections) == 0 {
		return nil, session.Wrap(session.ErrNothingToConvert, "convert", "no formats selected", nil)
	}

	ids := make([]string, len(selections))
	for i, selection := range selections {
		ids[i] = selection.ID
	}
	if err := c.session.BeginJob(ids...); err != nil {
		return nil, err
	}
	defer c.session.EndJob()

	summary := &Summary{Total: len(selections)}
	c.logger.Info("batch conversion started", logging.Int("total", summary.Total))

	for i, selection := range selections {
		artifact, err := c.convertEntry(ctx, selection.ID, selection.Format)
		if err != nil {
			summary.FailedID = selection.ID
			c.logger.Warn("batch conversion stopped",
				logging.String(logging.FieldEntryID, selection.ID),
				logging.Int("converted", summary.Converted),
				logging.Error(err))
			return summary, err
		}
		summary.Converted++
		summary.Artifacts = append(summary.Artifacts, *artifact)
		c.report(Progress{
			Done:    i + 1,
			Total:   summary.Total,
			Percent: 100 * (i + 1) / summary.Total,
			Current: selection.ID,
		})
	}

	c.logger.Info("batch conversion completed", logging.Int("converted", summary.Converted))
	return summary, nil
}

func (c *Coordinator) convertEntry(ctx context.Context, id, format string) (*session.Artifact, error) {
	if err := c.session.MarkConverting(id); err != nil {
		return nil, err
	}

	result, err := c.converter.Convert(ctx, id, format)
	if err != nil {
		message := err.Error()
		if recordErr := c.session.RecordFailure(id, message); recordErr != nil {
			c.logger.Warn("failed to record conversion failure", logging.Error(recordErr))
		}
		return nil, session.Wrap(session.ErrConversionFailed, "convert", id, err)
	}

	artifact := session.Artifact{
		Name:        result.FileName,
		DownloadURL: result.DownloadURL,
		SourceID:    id,
		Format:      format,
		CreatedAt:   time.Now(),
	}
	if err := c.session.RecordSuccess(id, artifact); err != nil {
		return nil, err
	}
	c.logger.Info("conversion completed",
		logging.String(logging.FieldEntryID, id),
		logging.String("format", format),
		logging.String("artifact", artifact.Name))
	return &artifact, nil
}

func (c *Coordinator) selectedFormat(id string) (string, error) {
	for _, selection := range c.session.Selections() {
		if selection.ID == id {
			return selection.Format, nil
		}
	}
	for _, entry := range c.session.Snapshot().Entries {
		if entry.ID == id {
			return "", session.Wrap(session.ErrFormatNotEligible, "convert",
				"no target format selected for "+entry.Name, nil)
		}
	}
	return "", session.Wrap(session.ErrEntryNotFound, "convert", id, nil)
}

func (c *Coordinator) report(progress Progress) {
	if c.onProgress != nil {
		c.onProgress(progress)
	}
}
