package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"facturex/internal/dto"
	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeIntakeStore struct {
	docs    map[uuid.UUID]*models.Document
	updated *models.Document
}

func newFakeIntakeStore() *fakeIntakeStore {
	return &fakeIntakeStore{docs: make(map[uuid.UUID]*models.Document)}
}

func (f *fakeIntakeStore) Create(ctx context.Context, doc *models.Document) error {
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeIntakeStore) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok || doc.CompanyID != companyID {
		return nil, errors.New("document not found")
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeIntakeStore) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range f.docs {
		if doc.CompanyID == companyID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeIntakeStore) UpdateIntakeFields(ctx context.Context, doc *models.Document) error {
	cp := *doc
	f.updated = &cp
	f.docs[doc.ID] = &cp
	return nil
}

type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	return f.text, f.err
}

type fakeFieldExtractor struct {
	extraction *InvoiceExtraction
	err        error
}

func (f *fakeFieldExtractor) ExtractInvoiceFields(ctx context.Context, text string) (*InvoiceExtraction, error) {
	return f.extraction, f.err
}

func newIntakeService(t *testing.T, store *fakeIntakeStore, ocr TextExtractor, llm FieldExtractor) *IntakeService {
	t.Helper()
	return NewIntakeService(store, ocr, llm, t.TempDir(), zap.NewNop())
}

func TestIntakeUpload(t *testing.T) {
	store := newFakeIntakeStore()
	dir := t.TempDir()
	svc := NewIntakeService(store, &fakeTextExtractor{}, nil, dir, zap.NewNop())

	companyID := uuid.New()
	content := []byte("%PDF-1.4 demo")
	resp, err := svc.Upload(context.Background(), companyID, bytes.NewReader(content), "factura.pdf", &dto.UploadDocumentRequest{
		Kind:      string(models.DocumentKindCustomerInvoice),
		Number:    "FAC-1",
		IssueDate: "2025-03-14",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if resp.Kind != string(models.DocumentKindCustomerInvoice) {
		t.Errorf("kind = %q", resp.Kind)
	}
	if resp.Status != string(models.DocumentStatusDraft) {
		t.Errorf("status = %q, want default draft", resp.Status)
	}
	if resp.FileSize != int64(len(content)) {
		t.Errorf("file size = %d, want %d", resp.FileSize, len(content))
	}

	doc := store.docs[uuid.MustParse(resp.ID)]
	if doc == nil {
		t.Fatal("document record not stored")
	}
	saved, err := os.ReadFile(filepath.Join(dir, filepath.Base(doc.StoragePath)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Error("stored file content differs from the upload")
	}
}

func TestIntakeUploadValidation(t *testing.T) {
	store := newFakeIntakeStore()
	svc := newIntakeService(t, store, &fakeTextExtractor{}, nil)
	companyID := uuid.New()

	tests := []struct {
		name  string
		in    dto.UploadDocumentRequest
		field string
	}{
		{"unknown kind", dto.UploadDocumentRequest{Kind: "receipt"}, "kind"},
		{"bad status", dto.UploadDocumentRequest{Kind: "customer_invoice", Status: "archived"}, "status"},
		{"bad date", dto.UploadDocumentRequest{Kind: "customer_invoice", IssueDate: "14/03/2025"}, "issue_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), companyID, bytes.NewReader([]byte("x")), "f.pdf", &tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Upload() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
	if len(store.docs) != 0 {
		t.Error("rejected uploads must not be stored")
	}
}

func TestIntakeProcessFillsEmptyFields(t *testing.T) {
	store := newFakeIntakeStore()
	companyID := uuid.New()
	doc := &models.Document{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Kind:        models.DocumentKindCustomerInvoice,
		Status:      models.DocumentStatusDraft,
		StoragePath: "/uploads/x.pdf",
	}
	store.docs[doc.ID] = doc

	ocr := &fakeTextExtractor{text: "FACTURA\nNº: FAC-123\nFecha: 2025-03-14\nReferencia: PED-7\nCliente: Acme"}
	svc := newIntakeService(t, store, ocr, nil)

	resp, err := svc.Process(context.Background(), companyID, doc.ID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if store.updated == nil {
		t.Fatal("extracted fields were not persisted")
	}
	if store.updated.Number != "FAC-123" {
		t.Errorf("Number = %q", store.updated.Number)
	}
	if store.updated.Reference != "PED-7" {
		t.Errorf("Reference = %q", store.updated.Reference)
	}
	if store.updated.IssueDate == nil || store.updated.IssueDate.Format("2006-01-02") != "2025-03-14" {
		t.Errorf("IssueDate = %v", store.updated.IssueDate)
	}
	if store.updated.Source != models.DocumentSourceIntake {
		t.Errorf("Source = %q, want intake", store.updated.Source)
	}

	if resp.ExtractedFields["number"] != "FAC-123" {
		t.Errorf("extracted fields = %v", resp.ExtractedFields)
	}
	if resp.Classification == nil || resp.Classification.Kind != string(models.DocumentKindCustomerInvoice) {
		t.Errorf("classification = %+v", resp.Classification)
	}
}

func TestIntakeProcessKeepsManualFields(t *testing.T) {
	store := newFakeIntakeStore()
	companyID := uuid.New()
	doc := &models.Document{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Kind:        models.DocumentKindCustomerInvoice,
		Number:      "MANUAL-1",
		Status:      models.DocumentStatusDraft,
		StoragePath: "/uploads/x.pdf",
	}
	store.docs[doc.ID] = doc

	ocr := &fakeTextExtractor{text: "Factura Nº: FAC-999"}
	svc := newIntakeService(t, store, ocr, nil)

	if _, err := svc.Process(context.Background(), companyID, doc.ID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if store.updated.Number != "MANUAL-1" {
		t.Errorf("Number = %q, manual value must survive", store.updated.Number)
	}
}

func TestIntakeProcessWithLLM(t *testing.T) {
	store := newFakeIntakeStore()
	companyID := uuid.New()
	doc := &models.Document{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Kind:        models.DocumentKindVendorInvoice,
		Status:      models.DocumentStatusDraft,
		StoragePath: "/uploads/x.pdf",
	}
	store.docs[doc.ID] = doc

	llm := &fakeFieldExtractor{extraction: &InvoiceExtraction{
		Number:  "PROV-55",
		Partner: "Suministros SA",
		Date:    "2025-02-01",
	}}
	svc := newIntakeService(t, store, &fakeTextExtractor{text: "texto largo del documento"}, llm)

	if _, err := svc.Process(context.Background(), companyID, doc.ID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if store.updated.Number != "PROV-55" || store.updated.PartnerName != "Suministros SA" {
		t.Errorf("LLM extraction not applied: %+v", store.updated)
	}
}

func TestIntakeProcessLLMFailureFallsBack(t *testing.T) {
	store := newFakeIntakeStore()
	companyID := uuid.New()
	doc := &models.Document{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Kind:        models.DocumentKindCustomerInvoice,
		Status:      models.DocumentStatusDraft,
		StoragePath: "/uploads/x.pdf",
	}
	store.docs[doc.ID] = doc

	llm := &fakeFieldExtractor{err: errors.New("model unavailable")}
	ocr := &fakeTextExtractor{text: "Factura Nº: FAC-42"}
	svc := newIntakeService(t, store, ocr, llm)

	if _, err := svc.Process(context.Background(), companyID, doc.ID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if store.updated.Number != "FAC-42" {
		t.Errorf("fallback extraction not applied, Number = %q", store.updated.Number)
	}
}

func TestIntakeProcessOCRFailure(t *testing.T) {
	store := newFakeIntakeStore()
	companyID := uuid.New()
	doc := &models.Document{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Kind:        models.DocumentKindCustomerInvoice,
		StoragePath: "/uploads/x.pdf",
	}
	store.docs[doc.ID] = doc

	svc := newIntakeService(t, store, &fakeTextExtractor{err: errors.New("unreadable")}, nil)

	if _, err := svc.Process(context.Background(), companyID, doc.ID); err == nil {
		t.Fatal("Process() should fail when OCR fails")
	}
	if store.updated != nil {
		t.Error("nothing should be persisted after an OCR failure")
	}
}

func TestIntakeProcessNotFound(t *testing.T) {
	svc := newIntakeService(t, newFakeIntakeStore(), &fakeTextExtractor{}, nil)

	_, err := svc.Process(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Process() error = %v, want ErrDocumentNotFound", err)
	}
}
