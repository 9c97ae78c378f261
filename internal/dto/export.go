package dto

type CreateExportRequest struct {
	IncludeCustomerInvoices *bool    `json:"include_customer_invoices"`
	IncludeVendorBills      *bool    `json:"include_vendor_bills"`
	IncludeCreditNotes      *bool    `json:"include_credit_notes"`
	DateFrom                string   `json:"date_from"`
	DateTo                  string   `json:"date_to"`
	StatusFilter            string   `json:"status_filter"`
	DocumentIDs             []string `json:"document_ids"`
	Format                  string   `json:"format"`
	Password                string   `json:"password"`
	BatchSize               *int     `json:"batch_size"`
	TemplateID              string   `json:"template_id"`
	OrganizeInFolders       bool     `json:"organize_in_folders"`
}

type ExportFailureItem struct {
	Document string `json:"document"`
	Reason   string `json:"reason"`
}

type ExportResponse struct {
	ID                string              `json:"id"`
	State             string              `json:"state"`
	Format            string              `json:"format"`
	ArchiveName       string              `json:"archive_name,omitempty"`
	Total             int                 `json:"total"`
	Succeeded         int                 `json:"succeeded"`
	Failed            int                 `json:"failed"`
	Failures          []ExportFailureItem `json:"failures,omitempty"`
	Warning           string              `json:"warning,omitempty"`
	ArchiveSize       int64               `json:"archive_size"`
	OriginalSize      int64               `json:"original_size"`
	CompressionRatio  float64             `json:"compression_ratio"`
	SuccessRate       float64             `json:"success_rate"`
	ProcessingSeconds float64             `json:"processing_seconds"`
	DownloadURL       string              `json:"download_url,omitempty"`
	CreatedAt         string              `json:"created_at"`
}

type ExportStatusResponse struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	DownloadURL string `json:"download_url,omitempty"`
}

type ExportListItem struct {
	ID          string  `json:"id"`
	State       string  `json:"state"`
	Format      string  `json:"format"`
	ArchiveName string  `json:"archive_name,omitempty"`
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	ArchiveSize int64   `json:"archive_size"`
	CreatedAt   string  `json:"created_at"`
}
