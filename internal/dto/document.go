package dto

type UploadDocumentRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=customer_invoice customer_refund vendor_invoice vendor_refund"`
	Number    string `json:"number"`
	Partner   string `json:"partner"`
	Reference string `json:"reference"`
	IssueDate string `json:"issue_date"`
	Status    string `json:"status" validate:"omitempty,oneof=draft posted"`
}

type DocumentResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Number        string `json:"number,omitempty"`
	Partner       string `json:"partner,omitempty"`
	Reference     string `json:"reference,omitempty"`
	IssueDate     string `json:"issue_date,omitempty"`
	Status        string `json:"status"`
	FileSize      int64  `json:"file_size"`
	Source        string `json:"source"`
	ExtractedText string `json:"extracted_text,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type ClassificationResult struct {
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

type ProcessDocumentResponse struct {
	Document        DocumentResponse      `json:"document"`
	Classification  *ClassificationResult `json:"classification,omitempty"`
	ExtractedFields map[string]string     `json:"extracted_fields,omitempty"`
}
