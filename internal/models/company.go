package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMaxExportDocuments = 5000
	MinMaxExportDocuments     = 1
	MaxMaxExportDocuments     = 50000
)

// Company is the tenant boundary. Every document, template and export
// belongs to exactly one company and all lookups are scoped by its ID.
type Company struct {
	ID                 uuid.UUID     `db:"id"`
	Name               string        `db:"name"`
	Code               string        `db:"code"`
	DefaultFormat      ArchiveFormat `db:"default_format"`
	MaxExportDocuments int           `db:"max_export_documents"`
	AllowDraftExport   bool          `db:"allow_draft_export"`
	IncludeCreditNotes bool          `db:"include_credit_notes"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}
