package repository

import (
	"context"
	"facturex/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type CompanyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCompanyRepository(db *pgxpool.Pool, logger *zap.Logger) *CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	query := squirrel.Insert("companies").
		Columns("id", "name", "code", "default_format", "max_export_documents",
			"allow_draft_export", "include_credit_notes", "created_at", "updated_at").
		Values(company.ID, company.Name, company.Code, company.DefaultFormat, company.MaxExportDocuments,
			company.AllowDraftExport, company.IncludeCreditNotes, company.CreatedAt, company.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	query := squirrel.Select("id", "name", "code", "default_format", "max_export_documents",
		"allow_draft_export", "include_credit_notes", "created_at", "updated_at").
		From("companies").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var company models.Company
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&company.ID, &company.Name, &company.Code, &company.DefaultFormat, &company.MaxExportDocuments,
		&company.AllowDraftExport, &company.IncludeCreditNotes, &company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &company, nil
}

func (r *CompanyRepository) GetByCode(ctx context.Context, code string) (*models.Company, error) {
	query := squirrel.Select("id", "name", "code", "default_format", "max_export_documents",
		"allow_draft_export", "include_credit_notes", "created_at", "updated_at").
		From("companies").
		Where(squirrel.Eq{"code": code}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var company models.Company
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&company.ID, &company.Name, &company.Code, &company.DefaultFormat, &company.MaxExportDocuments,
		&company.AllowDraftExport, &company.IncludeCreditNotes, &company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &company, nil
}

func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	query := squirrel.Update("companies").
		Set("name", company.Name).
		Set("default_format", company.DefaultFormat).
		Set("max_export_documents", company.MaxExportDocuments).
		Set("allow_draft_export", company.AllowDraftExport).
		Set("include_credit_notes", company.IncludeCreditNotes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": company.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
