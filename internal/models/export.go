package models

import (
	"time"

	"github.com/google/uuid"
)

type ArchiveFormat string

const (
	FormatZip         ArchiveFormat = "zip"
	FormatZipBest     ArchiveFormat = "zip_best"
	FormatZipPassword ArchiveFormat = "zip_password"
	FormatTarGz       ArchiveFormat = "tar_gz"
	FormatSevenZip    ArchiveFormat = "7z"
)

type ExportState string

const (
	ExportStateProcessing ExportState = "processing"
	ExportStateDone       ExportState = "done"
	ExportStateFailed     ExportState = "failed"
)

const (
	DefaultBatchSize = 50
	MinBatchSize     = 1
	MaxBatchSize     = 1000
)

// StatusFilterAll disables the document status filter.
const StatusFilterAll = "all"

// ExportRequest is the in-memory unit of work for one export run.
// It is built from the HTTP payload plus company defaults and never
// persisted as-is; the persisted trace is ExportRecord.
type ExportRequest struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID

	IncludeCustomerInvoices bool
	IncludeVendorBills      bool
	IncludeCreditNotes      bool
	DateFrom                *time.Time
	DateTo                  *time.Time
	StatusFilter            string
	ExplicitIDs             []uuid.UUID

	Format            ArchiveFormat
	Password          string
	BatchSize         int
	TemplateID        *uuid.UUID
	OrganizeInFolders bool
}

// FailedDocument is one (label, reason) pair recorded when a document
// could not be placed into the archive.
type FailedDocument struct {
	Label  string
	Reason string
}

// ExportOutcome is the caller-facing result of a finished run.
type ExportOutcome struct {
	Total            int
	Succeeded        int
	Failed           int
	Failures         []FailedDocument
	ArchiveName      string
	ArchiveSize      int64
	OriginalSize     int64
	CompressionRatio float64
	Elapsed          time.Duration
}

// ExportRecord is the persisted trace of a run: filters echo, counters,
// timing and the archive bytes themselves. Status polling and the
// download endpoint read from it.
type ExportRecord struct {
	ID        uuid.UUID   `db:"id"`
	CompanyID uuid.UUID   `db:"company_id"`
	UserID    uuid.UUID   `db:"user_id"`
	State     ExportState `db:"state"`

	Format                  ArchiveFormat `db:"format"`
	BatchSize               int           `db:"batch_size"`
	IncludeCustomerInvoices bool          `db:"include_customer_invoices"`
	IncludeVendorBills      bool          `db:"include_vendor_bills"`
	IncludeCreditNotes      bool          `db:"include_credit_notes"`
	DateFrom                *time.Time    `db:"date_from"`
	DateTo                  *time.Time    `db:"date_to"`
	StatusFilter            string        `db:"status_filter"`

	TotalCount     int    `db:"total_count"`
	ProcessedCount int    `db:"processed_count"`
	SuccessCount   int    `db:"success_count"`
	FailedCount    int    `db:"failed_count"`
	FailureSummary string `db:"failure_summary"`

	ArchiveName      string  `db:"archive_name"`
	ArchiveData      []byte  `db:"archive_data"`
	ArchiveSize      int64   `db:"archive_size"`
	OriginalSize     int64   `db:"original_size"`
	CompressionRatio float64 `db:"compression_ratio"`
	DurationSeconds  float64 `db:"duration_seconds"`

	CreatedAt  time.Time  `db:"created_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// SuccessRate is the percentage of selected documents that made it
// into the archive.
func (r *ExportRecord) SuccessRate() float64 {
	if r.TotalCount == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.TotalCount) * 100
}
