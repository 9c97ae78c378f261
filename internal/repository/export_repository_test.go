package repository

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"facturex/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func TestExportRepositoryRoundTrip(t *testing.T) {
	pool := startPostgres(t)
	repo := NewExportRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	userID := seedTestUser(t, pool, companyID)
	ctx := context.Background()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &models.ExportRecord{
		ID:                      uuid.New(),
		CompanyID:               companyID,
		UserID:                  userID,
		State:                   models.ExportStateProcessing,
		Format:                  models.FormatZip,
		BatchSize:               50,
		IncludeCustomerInvoices: true,
		IncludeCreditNotes:      true,
		DateFrom:                &from,
		StatusFilter:            "posted",
		TotalCount:              3,
		CreatedAt:               time.Now(),
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateProgress(ctx, rec.ID, 2); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	mid, err := repo.GetByID(ctx, companyID, rec.ID)
	if err != nil {
		t.Fatalf("get mid-run: %v", err)
	}
	if mid.State != models.ExportStateProcessing {
		t.Fatalf("state = %s, want processing", mid.State)
	}
	if mid.ProcessedCount != 2 {
		t.Fatalf("processed = %d, want 2", mid.ProcessedCount)
	}
	if mid.FinishedAt != nil {
		t.Fatal("finished_at set before Finish")
	}
	if mid.DateFrom == nil || mid.DateFrom.Format("2006-01-02") != "2025-01-01" {
		t.Fatalf("date_from = %v, want 2025-01-01", mid.DateFrom)
	}

	archive := []byte("PK\x03\x04 contenido del archivo")
	rec.State = models.ExportStateDone
	rec.ProcessedCount = 3
	rec.SuccessCount = 2
	rec.FailedCount = 1
	rec.FailureSummary = "• FAC-9: fichero no encontrado"
	rec.ArchiveName = "facturas_TST_20250310_120000_2docs.zip"
	rec.ArchiveData = archive
	rec.ArchiveSize = int64(len(archive))
	rec.OriginalSize = 4096
	rec.CompressionRatio = 0.75
	rec.DurationSeconds = 1.5
	if err := repo.Finish(ctx, rec); err != nil {
		t.Fatalf("finish: %v", err)
	}

	done, err := repo.GetByID(ctx, companyID, rec.ID)
	if err != nil {
		t.Fatalf("get finished: %v", err)
	}
	if done.State != models.ExportStateDone {
		t.Fatalf("state = %s, want done", done.State)
	}
	if done.SuccessCount != 2 || done.FailedCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", done.SuccessCount, done.FailedCount)
	}
	if done.FailureSummary != rec.FailureSummary {
		t.Fatalf("failure summary = %q", done.FailureSummary)
	}
	if done.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}
	// GetByID never loads the blob.
	if len(done.ArchiveData) != 0 {
		t.Fatalf("GetByID returned %d archive bytes", len(done.ArchiveData))
	}

	arch, err := repo.GetArchive(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	if !bytes.Equal(arch.ArchiveData, archive) {
		t.Fatalf("archive bytes differ: got %d, want %d", len(arch.ArchiveData), len(archive))
	}
	if arch.ArchiveName != rec.ArchiveName {
		t.Fatalf("archive name = %q", arch.ArchiveName)
	}

	// Records are scoped to their company.
	otherCompany := seedTestCompany(t, pool)
	if _, err := repo.GetByID(ctx, otherCompany, rec.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("cross-company lookup err = %v, want ErrNoRows", err)
	}
}

func TestExportRepositoryListNewestFirst(t *testing.T) {
	pool := startPostgres(t)
	repo := NewExportRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	userID := seedTestUser(t, pool, companyID)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var older, newer uuid.UUID
	for i, created := range []time.Time{base, base.Add(time.Minute)} {
		rec := &models.ExportRecord{
			ID:           uuid.New(),
			CompanyID:    companyID,
			UserID:       userID,
			State:        models.ExportStateProcessing,
			Format:       models.FormatZip,
			BatchSize:    50,
			StatusFilter: "posted",
			TotalCount:   1,
			CreatedAt:    created,
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i == 0 {
			older = rec.ID
		} else {
			newer = rec.ID
		}
	}

	records, err := repo.List(ctx, companyID, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("list returned %d records, want 2", len(records))
	}
	if records[0].ID != newer || records[1].ID != older {
		t.Fatal("list is not ordered newest first")
	}

	page, err := repo.List(ctx, companyID, 1, 1)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != older {
		t.Fatal("offset paging did not return the older record")
	}
}
