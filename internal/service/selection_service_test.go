package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeDocumentStore serves canned documents and records the arguments
// it was called with. Shared by the selection and export tests.
type fakeDocumentStore struct {
	docs       []*models.Document
	searchErr  error
	lastIDs    []uuid.UUID
	lastFilter models.DocumentFilter
}

func (f *fakeDocumentStore) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Document, error) {
	f.lastIDs = ids
	byID := make(map[uuid.UUID]*models.Document, len(f.docs))
	for _, doc := range f.docs {
		byID[doc.ID] = doc
	}
	var out []*models.Document
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) Search(ctx context.Context, companyID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.lastFilter = filter

	var out []*models.Document
	for _, doc := range f.docs {
		if !kindMatches(filter.Kinds, doc.Kind) {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && (doc.IssueDate == nil || doc.IssueDate.Before(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && (doc.IssueDate == nil || doc.IssueDate.After(*filter.DateTo)) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func kindMatches(kinds []models.DocumentKind, kind models.DocumentKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func testDocument(kind models.DocumentKind, number string, status models.DocumentStatus) *models.Document {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &models.Document{
		ID:          uuid.New(),
		Kind:        kind,
		Number:      number,
		PartnerName: "Acme Corp",
		IssueDate:   &date,
		Status:      status,
		StoragePath: "/uploads/" + number + ".pdf",
	}
}

func testCompany() *models.Company {
	return &models.Company{
		ID:                 uuid.New(),
		Name:               "Mi Empresa SL",
		Code:               "ACME",
		DefaultFormat:      models.FormatZip,
		MaxExportDocuments: models.DefaultMaxExportDocuments,
		IncludeCreditNotes: true,
	}
}

func postedRequest(companyID uuid.UUID) *models.ExportRequest {
	return &models.ExportRequest{
		CompanyID:               companyID,
		UserID:                  uuid.New(),
		IncludeCustomerInvoices: true,
		StatusFilter:            string(models.DocumentStatusPosted),
		Format:                  models.FormatZip,
		BatchSize:               models.DefaultBatchSize,
	}
}

func TestSelectByKindFlags(t *testing.T) {
	store := &fakeDocumentStore{docs: []*models.Document{
		testDocument(models.DocumentKindCustomerInvoice, "FAC-1", models.DocumentStatusPosted),
		testDocument(models.DocumentKindCustomerRefund, "NC-1", models.DocumentStatusPosted),
		testDocument(models.DocumentKindVendorInvoice, "PROV-1", models.DocumentStatusPosted),
		testDocument(models.DocumentKindVendorRefund, "NCP-1", models.DocumentStatusPosted),
	}}
	svc := NewSelectionService(store, zap.NewNop())
	company := testCompany()

	tests := []struct {
		name        string
		customer    bool
		vendor      bool
		creditNotes bool
		want        []string
	}{
		{"customer only", true, false, false, []string{"FAC-1"}},
		{"vendor only", false, true, false, []string{"PROV-1"}},
		{"credit notes add both refund kinds", false, false, true, []string{"NC-1", "NCP-1"}},
		{"everything", true, true, true, []string{"FAC-1", "NC-1", "PROV-1", "NCP-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := postedRequest(company.ID)
			req.IncludeCustomerInvoices = tt.customer
			req.IncludeVendorBills = tt.vendor
			req.IncludeCreditNotes = tt.creditNotes

			docs, err := svc.Select(context.Background(), req, company)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if len(docs) != len(tt.want) {
				t.Fatalf("Select() returned %d documents, want %d", len(docs), len(tt.want))
			}
			got := make(map[string]bool, len(docs))
			for _, doc := range docs {
				got[doc.Number] = true
			}
			for _, number := range tt.want {
				if !got[number] {
					t.Errorf("Select() missing document %s", number)
				}
			}
		})
	}
}

func TestSelectNoKindsSelected(t *testing.T) {
	store := &fakeDocumentStore{docs: []*models.Document{
		testDocument(models.DocumentKindCustomerInvoice, "FAC-1", models.DocumentStatusPosted),
	}}
	svc := NewSelectionService(store, zap.NewNop())

	req := postedRequest(uuid.New())
	req.IncludeCustomerInvoices = false

	_, err := svc.Select(context.Background(), req, testCompany())
	if !errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("Select() error = %v, want ErrSelectionEmpty", err)
	}
}

func TestSelectEmptyResult(t *testing.T) {
	store := &fakeDocumentStore{}
	svc := NewSelectionService(store, zap.NewNop())

	_, err := svc.Select(context.Background(), postedRequest(uuid.New()), testCompany())
	if !errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("Select() error = %v, want ErrSelectionEmpty", err)
	}
}

func TestSelectExplicitIDs(t *testing.T) {
	a := testDocument(models.DocumentKindCustomerInvoice, "FAC-1", models.DocumentStatusPosted)
	b := testDocument(models.DocumentKindVendorInvoice, "PROV-1", models.DocumentStatusPosted)
	store := &fakeDocumentStore{docs: []*models.Document{a, b}}
	svc := NewSelectionService(store, zap.NewNop())

	req := postedRequest(uuid.New())
	// Flags say customer-only, but explicit IDs win.
	req.ExplicitIDs = []uuid.UUID{b.ID, a.ID, b.ID}

	docs, err := svc.Select(context.Background(), req, testCompany())
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Select() returned %d documents, want 2", len(docs))
	}
	if docs[0].ID != b.ID || docs[1].ID != a.ID {
		t.Errorf("Select() did not preserve the explicit ID order")
	}
	if len(store.lastIDs) != 2 {
		t.Errorf("duplicate IDs were not collapsed: %v", store.lastIDs)
	}
}

func TestSelectStatusFilter(t *testing.T) {
	store := &fakeDocumentStore{docs: []*models.Document{
		testDocument(models.DocumentKindCustomerInvoice, "FAC-1", models.DocumentStatusPosted),
		testDocument(models.DocumentKindCustomerInvoice, "FAC-2", models.DocumentStatusDraft),
	}}
	svc := NewSelectionService(store, zap.NewNop())
	company := testCompany()
	company.AllowDraftExport = true

	req := postedRequest(company.ID)
	docs, err := svc.Select(context.Background(), req, company)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Number != "FAC-1" {
		t.Fatalf("posted filter returned %v", docs)
	}

	req.StatusFilter = models.StatusFilterAll
	docs, err = svc.Select(context.Background(), req, company)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("status %q returned %d documents, want 2", models.StatusFilterAll, len(docs))
	}
	if store.lastFilter.Status != "" {
		t.Errorf("status %q should not constrain the search, got %q", models.StatusFilterAll, store.lastFilter.Status)
	}
}

func TestSelectDraftPolicy(t *testing.T) {
	draft := testDocument(models.DocumentKindCustomerInvoice, "FAC-1", models.DocumentStatusDraft)
	store := &fakeDocumentStore{docs: []*models.Document{draft}}
	svc := NewSelectionService(store, zap.NewNop())

	req := postedRequest(uuid.New())
	req.StatusFilter = models.StatusFilterAll

	company := testCompany()
	_, err := svc.Select(context.Background(), req, company)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Select() error = %v, want ValidationError", err)
	}
	if verr.Field != "selection" {
		t.Errorf("ValidationError.Field = %q, want %q", verr.Field, "selection")
	}

	company.AllowDraftExport = true
	docs, err := svc.Select(context.Background(), req, company)
	if err != nil {
		t.Fatalf("Select() with drafts allowed error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Select() returned %d documents, want 1", len(docs))
	}
}

func TestSelectDateRange(t *testing.T) {
	early := testDocument(models.DocumentKindCustomerInvoice, "FAC-1", models.DocumentStatusPosted)
	earlyDate := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	early.IssueDate = &earlyDate

	late := testDocument(models.DocumentKindCustomerInvoice, "FAC-2", models.DocumentStatusPosted)
	lateDate := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	late.IssueDate = &lateDate

	store := &fakeDocumentStore{docs: []*models.Document{early, late}}
	svc := NewSelectionService(store, zap.NewNop())

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	req := postedRequest(uuid.New())
	req.DateFrom = &from

	docs, err := svc.Select(context.Background(), req, testCompany())
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Number != "FAC-2" {
		t.Fatalf("date filter returned %v", docs)
	}
}

func TestSelectStoreError(t *testing.T) {
	store := &fakeDocumentStore{searchErr: errors.New("connection refused")}
	svc := NewSelectionService(store, zap.NewNop())

	_, err := svc.Select(context.Background(), postedRequest(uuid.New()), testCompany())
	if err == nil || errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("Select() error = %v, want wrapped store error", err)
	}
}
