package repository

import (
	"context"
	"facturex/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// exportColumns omits archive_data: the blob is only fetched by
// GetArchive for the download endpoint.
const exportColumns = "id, company_id, user_id, state, format, batch_size, " +
	"include_customer_invoices, include_vendor_bills, include_credit_notes, " +
	"date_from, date_to, status_filter, total_count, processed_count, success_count, " +
	"failed_count, failure_summary, archive_name, archive_size, original_size, " +
	"compression_ratio, duration_seconds, created_at, finished_at"

type ExportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExportRepository(db *pgxpool.Pool, logger *zap.Logger) *ExportRepository {
	return &ExportRepository{
		db:     db,
		logger: logger,
	}
}

func scanExport(row pgx.Row) (*models.ExportRecord, error) {
	var rec models.ExportRecord
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.UserID, &rec.State, &rec.Format, &rec.BatchSize,
		&rec.IncludeCustomerInvoices, &rec.IncludeVendorBills, &rec.IncludeCreditNotes,
		&rec.DateFrom, &rec.DateTo, &rec.StatusFilter, &rec.TotalCount, &rec.ProcessedCount,
		&rec.SuccessCount, &rec.FailedCount, &rec.FailureSummary, &rec.ArchiveName,
		&rec.ArchiveSize, &rec.OriginalSize, &rec.CompressionRatio, &rec.DurationSeconds,
		&rec.CreatedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ExportRepository) Create(ctx context.Context, rec *models.ExportRecord) error {
	query := squirrel.Insert("export_records").
		Columns("id", "company_id", "user_id", "state", "format", "batch_size",
			"include_customer_invoices", "include_vendor_bills", "include_credit_notes",
			"date_from", "date_to", "status_filter", "total_count", "created_at").
		Values(rec.ID, rec.CompanyID, rec.UserID, rec.State, rec.Format, rec.BatchSize,
			rec.IncludeCustomerInvoices, rec.IncludeVendorBills, rec.IncludeCreditNotes,
			rec.DateFrom, rec.DateTo, rec.StatusFilter, rec.TotalCount, rec.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// UpdateProgress is called between batches so that status polling sees
// the run advance.
func (r *ExportRepository) UpdateProgress(ctx context.Context, id uuid.UUID, processed int) error {
	query := squirrel.Update("export_records").
		Set("processed_count", processed).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// Finish writes the terminal state of a run, including the archive
// bytes on success.
func (r *ExportRepository) Finish(ctx context.Context, rec *models.ExportRecord) error {
	query := squirrel.Update("export_records").
		Set("state", rec.State).
		Set("processed_count", rec.ProcessedCount).
		Set("success_count", rec.SuccessCount).
		Set("failed_count", rec.FailedCount).
		Set("failure_summary", rec.FailureSummary).
		Set("archive_name", rec.ArchiveName).
		Set("archive_data", rec.ArchiveData).
		Set("archive_size", rec.ArchiveSize).
		Set("original_size", rec.OriginalSize).
		Set("compression_ratio", rec.CompressionRatio).
		Set("duration_seconds", rec.DurationSeconds).
		Set("finished_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": rec.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ExportRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.ExportRecord, error) {
	query := squirrel.Select(exportColumns).
		From("export_records").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanExport(r.db.QueryRow(ctx, sql, args...))
}

// GetArchive fetches the stored archive for download. Lookup is by
// bare ID: the caller has already proven possession of the download
// token.
func (r *ExportRepository) GetArchive(ctx context.Context, id uuid.UUID) (*models.ExportRecord, error) {
	query := squirrel.Select("id", "state", "format", "archive_name", "archive_data", "archive_size").
		From("export_records").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rec models.ExportRecord
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&rec.ID, &rec.State, &rec.Format, &rec.ArchiveName, &rec.ArchiveData, &rec.ArchiveSize,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (r *ExportRepository) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.ExportRecord, error) {
	query := squirrel.Select(exportColumns).
		From("export_records").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ExportRecord
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
