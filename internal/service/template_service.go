package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"facturex/internal/dto"
	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateStore is the repository surface the template service works
// against.
type TemplateStore interface {
	Create(ctx context.Context, tmpl *models.NamingTemplate) error
	Update(ctx context.Context, tmpl *models.NamingTemplate) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.NamingTemplate, error)
	List(ctx context.Context, companyID uuid.UUID, activeOnly bool) ([]*models.NamingTemplate, error)
	CountActive(ctx context.Context, companyID uuid.UUID) (int, error)
	ClearDefault(ctx context.Context, companyID, exceptID uuid.UUID) error
	SetDefault(ctx context.Context, companyID, id uuid.UUID) error
	FindPromotable(ctx context.Context, companyID, exceptID uuid.UUID) (*models.NamingTemplate, error)
}

type TemplateService struct {
	templates TemplateStore
	logger    *zap.Logger
}

func NewTemplateService(templates TemplateStore, logger *zap.Logger) *TemplateService {
	return &TemplateService{
		templates: templates,
		logger:    logger,
	}
}

// Create validates and stores a new naming template. The first active
// template of a company becomes the default automatically; an explicit
// default displaces the previous one.
func (s *TemplateService) Create(ctx context.Context, companyID uuid.UUID, in *dto.CreateTemplateRequest) (*dto.TemplateResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "el nombre es obligatorio"}
	}
	if err := ValidatePattern(in.Pattern); err != nil {
		return nil, err
	}

	now := time.Now()
	tmpl := &models.NamingTemplate{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Name:        strings.TrimSpace(in.Name),
		Pattern:     in.Pattern,
		Description: in.Description,
		IsDefault:   in.IsDefault,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	count, err := s.templates.CountActive(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}
	if count == 0 {
		tmpl.IsDefault = true
	}

	if tmpl.IsDefault {
		if err := s.templates.ClearDefault(ctx, companyID, tmpl.ID); err != nil {
			return nil, fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("Naming template created",
		zap.String("template_id", tmpl.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.Bool("is_default", tmpl.IsDefault),
	)

	return toTemplateResponse(tmpl), nil
}

// Update applies a partial update. Marking a template default clears
// the flag elsewhere; deactivating the default promotes another active
// template when one exists.
func (s *TemplateService) Update(ctx context.Context, companyID, id uuid.UUID, in *dto.UpdateTemplateRequest) (*dto.TemplateResponse, error) {
	tmpl, err := s.templates.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, ErrTemplateNotFound
	}

	wasDefault := tmpl.IsDefault

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "el nombre es obligatorio"}
		}
		tmpl.Name = strings.TrimSpace(*in.Name)
	}
	if in.Pattern != nil {
		if err := ValidatePattern(*in.Pattern); err != nil {
			return nil, err
		}
		tmpl.Pattern = *in.Pattern
	}
	if in.Description != nil {
		tmpl.Description = *in.Description
	}
	if in.IsDefault != nil {
		tmpl.IsDefault = *in.IsDefault
	}
	if in.Active != nil {
		tmpl.Active = *in.Active
	}

	// A deactivated template cannot stay the default.
	if !tmpl.Active {
		tmpl.IsDefault = false
	}

	if tmpl.IsDefault && !wasDefault {
		if err := s.templates.ClearDefault(ctx, companyID, tmpl.ID); err != nil {
			return nil, fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	if err := s.templates.Update(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	if wasDefault && !tmpl.IsDefault {
		s.promoteReplacement(ctx, companyID, tmpl.ID)
	}

	return toTemplateResponse(tmpl), nil
}

// Deactivate soft-disables a template. Deleting is deliberately not
// supported so that export history keeps pointing at real rows.
func (s *TemplateService) Deactivate(ctx context.Context, companyID, id uuid.UUID) error {
	tmpl, err := s.templates.GetByID(ctx, companyID, id)
	if err != nil {
		return ErrTemplateNotFound
	}
	if !tmpl.Active {
		return nil
	}

	wasDefault := tmpl.IsDefault
	tmpl.Active = false
	tmpl.IsDefault = false

	if err := s.templates.Update(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}

	if wasDefault {
		s.promoteReplacement(ctx, companyID, id)
	}

	s.logger.Info("Naming template deactivated",
		zap.String("template_id", id.String()),
		zap.String("company_id", companyID.String()),
	)

	return nil
}

// promoteReplacement makes some other active template the default
// after the current default was dropped. Having no default left is
// fine; exports then use the built-in pattern.
func (s *TemplateService) promoteReplacement(ctx context.Context, companyID, exceptID uuid.UUID) {
	candidate, err := s.templates.FindPromotable(ctx, companyID, exceptID)
	if err != nil {
		s.logger.Debug("No template left to promote as default",
			zap.String("company_id", companyID.String()),
		)
		return
	}
	if err := s.templates.SetDefault(ctx, companyID, candidate.ID); err != nil {
		s.logger.Warn("Failed to promote replacement default template",
			zap.String("template_id", candidate.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *TemplateService) Get(ctx context.Context, companyID, id uuid.UUID) (*dto.TemplateResponse, error) {
	tmpl, err := s.templates.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, ErrTemplateNotFound
	}
	return toTemplateResponse(tmpl), nil
}

func (s *TemplateService) List(ctx context.Context, companyID uuid.UUID, includeInactive bool) ([]*dto.TemplateResponse, error) {
	templates, err := s.templates.List(ctx, companyID, !includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	responses := make([]*dto.TemplateResponse, len(templates))
	for i, tmpl := range templates {
		responses[i] = toTemplateResponse(tmpl)
	}
	return responses, nil
}

// Preview renders a pattern with sample document data without storing
// anything.
func (s *TemplateService) Preview(pattern string) (*dto.PreviewTemplateResponse, error) {
	example, err := RenderExample(pattern)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewTemplateResponse{
		Pattern: pattern,
		Example: example,
	}, nil
}

func toTemplateResponse(tmpl *models.NamingTemplate) *dto.TemplateResponse {
	resp := &dto.TemplateResponse{
		ID:          tmpl.ID.String(),
		Name:        tmpl.Name,
		Pattern:     tmpl.Pattern,
		Description: tmpl.Description,
		IsDefault:   tmpl.IsDefault,
		Active:      tmpl.Active,
		UsageCount:  tmpl.UsageCount,
		CreatedAt:   tmpl.CreatedAt.Format(time.RFC3339),
	}
	if tmpl.LastUsedAt != nil {
		resp.LastUsedAt = tmpl.LastUsedAt.Format(time.RFC3339)
	}
	return resp
}
