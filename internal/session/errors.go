package session

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying every failure the orchestrator can surface.
// Wrap tags errors with one of these markers so callers can branch with
// errors.Is while preserving the human-readable detail.
var (
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrSizeExceeded         = errors.New("size exceeded")
	ErrUnsupportedType      = errors.New("unsupported type")
	ErrUploadFailed         = errors.New("upload failed")
	ErrConversionInProgress = errors.New("conversion in progress")
	ErrNothingToConvert     = errors.New("nothing to convert")
	ErrConversionFailed     = errors.New("conversion failed")
	ErrFormatNotEligible    = errors.New("format not eligible")
	ErrEntryNotFound        = errors.New("entry not found")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrConversionFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "session failure"
	}
	return strings.Join(parts, ": ")
}

// UserMessage maps an orchestrator error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConversionInProgress):
		return "A conversion is in progress. Please wait until it completes."
	case errors.Is(err, ErrNothingToConvert):
		return "Please select a conversion format for at least one file."
	case errors.Is(err, ErrFormatNotEligible):
		return "Please select a format to convert to."
	default:
		return err.Error()
	}
}
