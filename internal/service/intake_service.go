package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"facturex/internal/dto"
	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntakeDocumentStore is the document repository surface used by
// intake: storing uploads and filling extracted fields.
type IntakeDocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Document, error)
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Document, error)
	UpdateIntakeFields(ctx context.Context, doc *models.Document) error
}

// TextExtractor turns a stored file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// FieldExtractor pulls invoice fields out of extracted text.
type FieldExtractor interface {
	ExtractInvoiceFields(ctx context.Context, text string) (*InvoiceExtraction, error)
}

type IntakeService struct {
	documents IntakeDocumentStore
	ocr       TextExtractor
	llm       FieldExtractor
	uploadDir string
	logger    *zap.Logger
}

// NewIntakeService wires document intake. llm may be nil; extraction
// then falls back to regular expressions.
func NewIntakeService(
	documents IntakeDocumentStore,
	ocr TextExtractor,
	llm FieldExtractor,
	uploadDir string,
	logger *zap.Logger,
) *IntakeService {
	// Create upload directory if it doesn't exist
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &IntakeService{
		documents: documents,
		ocr:       ocr,
		llm:       llm,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Upload stores the original file and creates the document row.
func (s *IntakeService) Upload(ctx context.Context, companyID uuid.UUID, file io.Reader, fileName string, in *dto.UploadDocumentRequest) (*dto.DocumentResponse, error) {
	kind := models.DocumentKind(in.Kind)
	if !knownDocumentKind(kind) {
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("tipo desconocido: %s", in.Kind)}
	}

	status := models.DocumentStatusDraft
	if in.Status != "" {
		status = models.DocumentStatus(in.Status)
		if status != models.DocumentStatusDraft && status != models.DocumentStatusPosted {
			return nil, &ValidationError{Field: "status", Reason: "valores permitidos: draft, posted"}
		}
	}

	var issueDate *time.Time
	if in.IssueDate != "" {
		parsed, err := time.Parse("2006-01-02", in.IssueDate)
		if err != nil {
			return nil, &ValidationError{Field: "issue_date", Reason: "formato esperado AAAA-MM-DD"}
		}
		issueDate = &parsed
	}

	// Generate unique file name
	fileID := uuid.New()
	ext := filepath.Ext(fileName)
	newFileName := fileID.String() + ext
	filePath := filepath.Join(s.uploadDir, newFileName)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	fileSize, err := io.Copy(dst, file)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:          fileID,
		CompanyID:   companyID,
		Kind:        kind,
		Number:      in.Number,
		PartnerName: in.Partner,
		Reference:   in.Reference,
		IssueDate:   issueDate,
		Status:      status,
		StoragePath: "/uploads/" + newFileName,
		FileSize:    fileSize,
		Source:      models.DocumentSourceManual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	s.logger.Info("Document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("kind", string(doc.Kind)),
		zap.Int64("file_size", fileSize),
	)

	return toDocumentResponse(doc), nil
}

// Process runs OCR over a stored document and fills its empty
// descriptive fields from the extracted text. The manually entered
// values are never overwritten.
func (s *IntakeService) Process(ctx context.Context, companyID, documentID uuid.UUID) (*dto.ProcessDocumentResponse, error) {
	doc, err := s.documents.GetByID(ctx, companyID, documentID)
	if err != nil {
		return nil, ErrDocumentNotFound
	}

	filePath := filepath.Join(s.uploadDir, filepath.Base(doc.StoragePath))
	text, err := s.ocr.ExtractText(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	doc.ExtractedText = sanitizeUTF8(text)
	doc.Source = models.DocumentSourceIntake

	extraction := s.extractFields(ctx, doc.ExtractedText)

	if doc.Number == "" && extraction.Number != "" {
		doc.Number = extraction.Number
	}
	if doc.PartnerName == "" && extraction.Partner != "" {
		doc.PartnerName = extraction.Partner
	}
	if doc.Reference == "" && extraction.Reference != "" {
		doc.Reference = extraction.Reference
	}
	if doc.IssueDate == nil && extraction.Date != "" {
		if parsed, err := time.Parse("2006-01-02", extraction.Date); err == nil {
			doc.IssueDate = &parsed
		}
	}

	if err := s.documents.UpdateIntakeFields(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store extracted fields: %w", err)
	}

	resp := &dto.ProcessDocumentResponse{
		Document:        *toDocumentResponse(doc),
		ExtractedFields: extractionMap(extraction),
	}

	// Classification is advisory: the kind chosen at upload stays
	// authoritative.
	if kind, confidence := classifyDocument(doc.ExtractedText); kind != "" {
		resp.Classification = &dto.ClassificationResult{
			Kind:       string(kind),
			Confidence: confidence,
		}
	}

	s.logger.Info("Document processed",
		zap.String("document_id", doc.ID.String()),
		zap.Int("text_length", len(doc.ExtractedText)),
	)

	return resp, nil
}

// extractFields prefers the LLM when configured and falls back to
// regular expressions on any failure.
func (s *IntakeService) extractFields(ctx context.Context, text string) *InvoiceExtraction {
	if s.llm != nil {
		extraction, err := s.llm.ExtractInvoiceFields(ctx, text)
		if err == nil {
			return extraction
		}
		s.logger.Warn("LLM extraction failed, falling back to regex", zap.Error(err))
	}
	return extractFieldsFallback(text)
}

func (s *IntakeService) Get(ctx context.Context, companyID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.documents.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, ErrDocumentNotFound
	}
	return toDocumentResponse(doc), nil
}

func (s *IntakeService) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*dto.DocumentResponse, error) {
	docs, err := s.documents.List(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	responses := make([]*dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = toDocumentResponse(doc)
	}
	return responses, nil
}

func knownDocumentKind(kind models.DocumentKind) bool {
	switch kind {
	case models.DocumentKindCustomerInvoice, models.DocumentKindCustomerRefund,
		models.DocumentKindVendorInvoice, models.DocumentKindVendorRefund:
		return true
	}
	return false
}

func toDocumentResponse(doc *models.Document) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:            doc.ID.String(),
		Kind:          string(doc.Kind),
		Number:        doc.Number,
		Partner:       doc.PartnerName,
		Reference:     doc.Reference,
		Status:        string(doc.Status),
		FileSize:      doc.FileSize,
		Source:        string(doc.Source),
		ExtractedText: doc.ExtractedText,
		CreatedAt:     doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.IssueDate != nil {
		resp.IssueDate = doc.IssueDate.Format("2006-01-02")
	}
	return resp
}

func extractionMap(extraction *InvoiceExtraction) map[string]string {
	fields := make(map[string]string)
	if extraction.Number != "" {
		fields["number"] = extraction.Number
	}
	if extraction.Partner != "" {
		fields["partner"] = extraction.Partner
	}
	if extraction.Date != "" {
		fields["date"] = extraction.Date
	}
	if extraction.Reference != "" {
		fields["reference"] = extraction.Reference
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
