package repository

import (
	"context"
	"testing"
	"time"

	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func seedTestDocument(t *testing.T, repo *DocumentRepository, companyID uuid.UUID, kind models.DocumentKind, number, issueDate string, status models.DocumentStatus) uuid.UUID {
	t.Helper()
	date, err := time.Parse("2006-01-02", issueDate)
	if err != nil {
		t.Fatalf("bad date %q: %v", issueDate, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Kind:        kind,
		Number:      number,
		PartnerName: "Acme Corp",
		IssueDate:   &date,
		Status:      status,
		StoragePath: "/uploads/" + number + ".pdf",
		FileSize:    1024,
		Source:      models.DocumentSourceManual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create document %s: %v", number, err)
	}
	return doc.ID
}

func TestDocumentRepositorySearch(t *testing.T) {
	pool := startPostgres(t)
	repo := NewDocumentRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	ctx := context.Background()

	seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "FAC-1", "2025-01-10", models.DocumentStatusPosted)
	seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "FAC-2", "2025-02-15", models.DocumentStatusPosted)
	seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "FAC-3", "2025-03-20", models.DocumentStatusDraft)
	seedTestDocument(t, repo, companyID, models.DocumentKindVendorInvoice, "PROV-1", "2025-02-01", models.DocumentStatusPosted)
	seedTestDocument(t, repo, companyID, models.DocumentKindCustomerRefund, "RECT-1", "2025-02-10", models.DocumentStatusPosted)

	// Another company's documents never leak into the result.
	otherCompany := seedTestCompany(t, pool)
	seedTestDocument(t, repo, otherCompany, models.DocumentKindCustomerInvoice, "FAC-X", "2025-02-01", models.DocumentStatusPosted)

	t.Run("by kind and status", func(t *testing.T) {
		docs, err := repo.Search(ctx, companyID, models.DocumentFilter{
			Kinds:  []models.DocumentKind{models.DocumentKindCustomerInvoice},
			Status: models.DocumentStatusPosted,
		})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("got %d documents, want 2", len(docs))
		}
		// Ordered by issue date.
		if docs[0].Number != "FAC-1" || docs[1].Number != "FAC-2" {
			t.Fatalf("got %s, %s; want FAC-1, FAC-2", docs[0].Number, docs[1].Number)
		}
	})

	t.Run("date range", func(t *testing.T) {
		from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
		docs, err := repo.Search(ctx, companyID, models.DocumentFilter{
			Kinds: []models.DocumentKind{
				models.DocumentKindCustomerInvoice,
				models.DocumentKindVendorInvoice,
				models.DocumentKindCustomerRefund,
			},
			DateFrom: &from,
			DateTo:   &to,
		})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("got %d documents, want 3", len(docs))
		}
		for _, doc := range docs {
			if doc.Number == "FAC-1" || doc.Number == "FAC-3" {
				t.Fatalf("document %s is outside the date range", doc.Number)
			}
		}
	})

	t.Run("no kinds means no rows", func(t *testing.T) {
		docs, err := repo.Search(ctx, companyID, models.DocumentFilter{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("got %d documents, want 0", len(docs))
		}
	})
}

func TestDocumentRepositoryGetByIDsOrder(t *testing.T) {
	pool := startPostgres(t)
	repo := NewDocumentRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	ctx := context.Background()

	a := seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "FAC-A", "2025-01-01", models.DocumentStatusPosted)
	b := seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "FAC-B", "2025-01-02", models.DocumentStatusPosted)
	c := seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "FAC-C", "2025-01-03", models.DocumentStatusPosted)

	docs, err := repo.GetByIDs(ctx, companyID, []uuid.UUID{c, a, uuid.New(), b})
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	if docs[0].ID != c || docs[1].ID != a || docs[2].ID != b {
		t.Fatalf("got %s, %s, %s; want FAC-C, FAC-A, FAC-B",
			docs[0].Number, docs[1].Number, docs[2].Number)
	}
}

func TestDocumentRepositoryUpdateIntakeFields(t *testing.T) {
	pool := startPostgres(t)
	repo := NewDocumentRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	ctx := context.Background()

	id := seedTestDocument(t, repo, companyID, models.DocumentKindCustomerInvoice, "", "2025-01-01", models.DocumentStatusDraft)

	doc, err := repo.GetByID(ctx, companyID, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	issueDate := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	doc.Number = "FAC-2025-0042"
	doc.Reference = "PED-99"
	doc.IssueDate = &issueDate
	doc.Source = models.DocumentSourceIntake
	doc.ExtractedText = "FACTURA Nº: FAC-2025-0042"
	if err := repo.UpdateIntakeFields(ctx, doc); err != nil {
		t.Fatalf("update intake fields: %v", err)
	}

	got, err := repo.GetByID(ctx, companyID, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Number != "FAC-2025-0042" {
		t.Fatalf("number = %q", got.Number)
	}
	if got.Reference != "PED-99" {
		t.Fatalf("reference = %q", got.Reference)
	}
	if got.Source != models.DocumentSourceIntake {
		t.Fatalf("source = %q, want intake", got.Source)
	}
	if got.IssueDate == nil || got.IssueDate.Format("2006-01-02") != "2025-03-14" {
		t.Fatalf("issue date = %v", got.IssueDate)
	}
	if got.ExtractedText == "" {
		t.Fatal("extracted text not persisted")
	}
}
