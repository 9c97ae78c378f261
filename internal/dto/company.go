package dto

type CompanyResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Code               string `json:"code"`
	DefaultFormat      string `json:"default_format"`
	MaxExportDocuments int    `json:"max_export_documents"`
	AllowDraftExport   bool   `json:"allow_draft_export"`
	IncludeCreditNotes bool   `json:"include_credit_notes"`
}

type UpdateCompanyRequest struct {
	Name               *string `json:"name"`
	DefaultFormat      *string `json:"default_format"`
	MaxExportDocuments *int    `json:"max_export_documents"`
	AllowDraftExport   *bool   `json:"allow_draft_export"`
	IncludeCreditNotes *bool   `json:"include_credit_notes"`
}
