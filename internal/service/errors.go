package service

import (
	"errors"
	"fmt"
	"strings"

	"facturex/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrCompanyExists      = errors.New("company code already taken")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrExportNotFound     = errors.New("export not found")

	// ErrSelectionEmpty means the filters matched no documents. It maps
	// to a user-facing message, not a server fault.
	ErrSelectionEmpty = errors.New("no documents match the selection criteria")
)

// ValidationError rejects a request before any work is done.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CodecUnavailableError reports a requested archive format whose codec
// is not compiled into this build.
type CodecUnavailableError struct {
	Format models.ArchiveFormat
}

func (e *CodecUnavailableError) Error() string {
	return fmt.Sprintf("archive format %q is not available in this installation", e.Format)
}

// PerDocumentError wraps a single document failure inside a run. The
// pipeline records it and moves on to the next document.
type PerDocumentError struct {
	Label string
	Err   error
}

func (e *PerDocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

func (e *PerDocumentError) Unwrap() error {
	return e.Err
}

// TotalFailureError means every selected document failed and no
// archive was produced.
type TotalFailureError struct {
	Total    int
	Failures []models.FailedDocument
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("no documents could be exported (%d failures): %s",
		e.Total, FailureSummary(e.Failures, 5))
}

// FailureSummary renders failures as bullet lines, capped at limit
// with a trailing "... y N errores más" marker.
func FailureSummary(failures []models.FailedDocument, limit int) string {
	if len(failures) == 0 {
		return ""
	}

	var b strings.Builder
	shown := failures
	if limit > 0 && len(failures) > limit {
		shown = failures[:limit]
	}
	for i, f := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s: %s", f.Label, f.Reason)
	}
	if rest := len(failures) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n... y %d errores más", rest)
	}

	return b.String()
}
