package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	DocumentKindCustomerInvoice DocumentKind = "customer_invoice"
	DocumentKindCustomerRefund  DocumentKind = "customer_refund"
	DocumentKindVendorInvoice   DocumentKind = "vendor_invoice"
	DocumentKindVendorRefund    DocumentKind = "vendor_refund"
)

type DocumentStatus string

const (
	DocumentStatusDraft  DocumentStatus = "draft"
	DocumentStatusPosted DocumentStatus = "posted"
)

type DocumentSource string

const (
	DocumentSourceManual DocumentSource = "manual"
	DocumentSourceIntake DocumentSource = "intake"
)

type Document struct {
	ID            uuid.UUID      `db:"id"`
	CompanyID     uuid.UUID      `db:"company_id"`
	Kind          DocumentKind   `db:"kind"`
	Number        string         `db:"number"`
	PartnerName   string         `db:"partner_name"`
	PartnerRef    string         `db:"partner_ref"`
	Reference     string         `db:"reference"`
	IssueDate     *time.Time     `db:"issue_date"`
	Status        DocumentStatus `db:"status"`
	StoragePath   string         `db:"storage_path"`
	FileSize      int64          `db:"file_size"`
	Source        DocumentSource `db:"source"`
	ExtractedText string         `db:"extracted_text"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// DocumentFilter narrows a company's documents for export selection.
// Zero-value fields are ignored; Kinds empty means nothing matches.
type DocumentFilter struct {
	Kinds    []DocumentKind
	DateFrom *time.Time
	DateTo   *time.Time
	Status   DocumentStatus
}
