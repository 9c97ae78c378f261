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

const documentColumns = "id, company_id, kind, number, partner_name, partner_ref, reference, " +
	"issue_date, status, storage_path, file_size, source, extracted_text, created_at, updated_at"

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.Kind, &doc.Number, &doc.PartnerName, &doc.PartnerRef, &doc.Reference,
		&doc.IssueDate, &doc.Status, &doc.StoragePath, &doc.FileSize, &doc.Source, &doc.ExtractedText,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := squirrel.Insert("documents").
		Columns("id", "company_id", "kind", "number", "partner_name", "partner_ref", "reference",
			"issue_date", "status", "storage_path", "file_size", "source", "extracted_text",
			"created_at", "updated_at").
		Values(doc.ID, doc.CompanyID, doc.Kind, doc.Number, doc.PartnerName, doc.PartnerRef, doc.Reference,
			doc.IssueDate, doc.Status, doc.StoragePath, doc.FileSize, doc.Source, doc.ExtractedText,
			doc.CreatedAt, doc.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Document, error) {
	query := squirrel.Select(documentColumns).
		From("documents").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanDocument(r.db.QueryRow(ctx, sql, args...))
}

// GetByIDs fetches the given documents of one company. The result
// preserves the order of ids; unknown ids are silently skipped.
func (r *DocumentRepository) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := squirrel.Select(documentColumns).
		From("documents").
		Where(squirrel.Eq{"company_id": companyID, "id": ids}).
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

	byID := make(map[uuid.UUID]*models.Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	documents := make([]*models.Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			documents = append(documents, doc)
		}
	}

	return documents, nil
}

// Search returns the documents of one company matching the filter,
// ordered by issue date then number.
func (r *DocumentRepository) Search(ctx context.Context, companyID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error) {
	if len(filter.Kinds) == 0 {
		return nil, nil
	}

	query := squirrel.Select(documentColumns).
		From("documents").
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"kind": filter.Kinds}).
		OrderBy("issue_date", "number").
		PlaceholderFormat(squirrel.Dollar)

	if filter.DateFrom != nil {
		query = query.Where(squirrel.GtOrEq{"issue_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		query = query.Where(squirrel.LtOrEq{"issue_date": *filter.DateTo})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

func (r *DocumentRepository) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	query := squirrel.Select(documentColumns).
		From("documents").
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

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

func (r *DocumentRepository) UpdateExtractedText(ctx context.Context, id uuid.UUID, text string) error {
	query := squirrel.Update("documents").
		Set("extracted_text", text).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// UpdateIntakeFields overwrites the descriptive fields filled during
// intake processing.
func (r *DocumentRepository) UpdateIntakeFields(ctx context.Context, doc *models.Document) error {
	query := squirrel.Update("documents").
		Set("kind", doc.Kind).
		Set("number", doc.Number).
		Set("partner_name", doc.PartnerName).
		Set("reference", doc.Reference).
		Set("issue_date", doc.IssueDate).
		Set("source", doc.Source).
		Set("extracted_text", doc.ExtractedText).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": doc.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
