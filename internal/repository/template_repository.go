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

const templateColumns = "id, company_id, name, pattern, description, is_default, active, " +
	"usage_count, last_used_at, created_at, updated_at"

type TemplateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTemplateRepository(db *pgxpool.Pool, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

func scanTemplate(row pgx.Row) (*models.NamingTemplate, error) {
	var tmpl models.NamingTemplate
	err := row.Scan(
		&tmpl.ID, &tmpl.CompanyID, &tmpl.Name, &tmpl.Pattern, &tmpl.Description,
		&tmpl.IsDefault, &tmpl.Active, &tmpl.UsageCount, &tmpl.LastUsedAt,
		&tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.NamingTemplate) error {
	query := squirrel.Insert("naming_templates").
		Columns("id", "company_id", "name", "pattern", "description", "is_default", "active",
			"usage_count", "last_used_at", "created_at", "updated_at").
		Values(tmpl.ID, tmpl.CompanyID, tmpl.Name, tmpl.Pattern, tmpl.Description, tmpl.IsDefault, tmpl.Active,
			tmpl.UsageCount, tmpl.LastUsedAt, tmpl.CreatedAt, tmpl.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *TemplateRepository) Update(ctx context.Context, tmpl *models.NamingTemplate) error {
	query := squirrel.Update("naming_templates").
		Set("name", tmpl.Name).
		Set("pattern", tmpl.Pattern).
		Set("description", tmpl.Description).
		Set("is_default", tmpl.IsDefault).
		Set("active", tmpl.Active).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": tmpl.ID, "company_id": tmpl.CompanyID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *TemplateRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.NamingTemplate, error) {
	query := squirrel.Select(templateColumns).
		From("naming_templates").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanTemplate(r.db.QueryRow(ctx, sql, args...))
}

// GetDefault returns the active default template of a company, or
// pgx.ErrNoRows when none is configured.
func (r *TemplateRepository) GetDefault(ctx context.Context, companyID uuid.UUID) (*models.NamingTemplate, error) {
	query := squirrel.Select(templateColumns).
		From("naming_templates").
		Where(squirrel.Eq{"company_id": companyID, "is_default": true, "active": true}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanTemplate(r.db.QueryRow(ctx, sql, args...))
}

func (r *TemplateRepository) List(ctx context.Context, companyID uuid.UUID, activeOnly bool) ([]*models.NamingTemplate, error) {
	query := squirrel.Select(templateColumns).
		From("naming_templates").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("is_default DESC", "name").
		PlaceholderFormat(squirrel.Dollar)

	if activeOnly {
		query = query.Where(squirrel.Eq{"active": true})
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

	var templates []*models.NamingTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) CountActive(ctx context.Context, companyID uuid.UUID) (int, error) {
	query := squirrel.Select("COUNT(*)").
		From("naming_templates").
		Where(squirrel.Eq{"company_id": companyID, "active": true}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// ClearDefault drops the default flag from every template of the
// company except the given one.
func (r *TemplateRepository) ClearDefault(ctx context.Context, companyID, exceptID uuid.UUID) error {
	query := squirrel.Update("naming_templates").
		Set("is_default", false).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"company_id": companyID, "is_default": true}).
		Where(squirrel.NotEq{"id": exceptID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *TemplateRepository) SetDefault(ctx context.Context, companyID, id uuid.UUID) error {
	query := squirrel.Update("naming_templates").
		Set("is_default", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FindPromotable picks an active non-default template to promote when
// the current default is deactivated.
func (r *TemplateRepository) FindPromotable(ctx context.Context, companyID, exceptID uuid.UUID) (*models.NamingTemplate, error) {
	query := squirrel.Select(templateColumns).
		From("naming_templates").
		Where(squirrel.Eq{"company_id": companyID, "active": true}).
		Where(squirrel.NotEq{"id": exceptID}).
		OrderBy("created_at").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanTemplate(r.db.QueryRow(ctx, sql, args...))
}

// RecordUsage bumps the usage counter after a successful filename
// generation. Callers treat failures as non-fatal.
func (r *TemplateRepository) RecordUsage(ctx context.Context, id uuid.UUID) error {
	query := squirrel.Update("naming_templates").
		Set("usage_count", squirrel.Expr("usage_count + 1")).
		Set("last_used_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
