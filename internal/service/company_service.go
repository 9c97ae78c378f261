package service

import (
	"context"
	"fmt"
	"strings"

	"facturex/internal/dto"
	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanySettingsStore is the company repository surface used for
// settings management.
type CompanySettingsStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

type CompanyService struct {
	companies CompanySettingsStore
	logger    *zap.Logger
}

func NewCompanyService(companies CompanySettingsStore, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		companies: companies,
		logger:    logger,
	}
}

func (s *CompanyService) Get(ctx context.Context, companyID uuid.UUID) (*dto.CompanyResponse, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	return toCompanyResponse(company), nil
}

// Update applies a partial settings update with the same bounds the
// export pipeline enforces.
func (s *CompanyService) Update(ctx context.Context, companyID uuid.UUID, in *dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "el nombre es obligatorio"}
		}
		company.Name = strings.TrimSpace(*in.Name)
	}
	if in.DefaultFormat != nil {
		format := models.ArchiveFormat(*in.DefaultFormat)
		if !KnownFormat(format) {
			return nil, &ValidationError{Field: "default_format", Reason: fmt.Sprintf("formato desconocido: %s", format)}
		}
		if !FormatAvailable(format) {
			return nil, &CodecUnavailableError{Format: format}
		}
		company.DefaultFormat = format
	}
	if in.MaxExportDocuments != nil {
		if *in.MaxExportDocuments < models.MinMaxExportDocuments || *in.MaxExportDocuments > models.MaxMaxExportDocuments {
			return nil, &ValidationError{
				Field:  "max_export_documents",
				Reason: fmt.Sprintf("debe estar entre %d y %d", models.MinMaxExportDocuments, models.MaxMaxExportDocuments),
			}
		}
		company.MaxExportDocuments = *in.MaxExportDocuments
	}
	if in.AllowDraftExport != nil {
		company.AllowDraftExport = *in.AllowDraftExport
	}
	if in.IncludeCreditNotes != nil {
		company.IncludeCreditNotes = *in.IncludeCreditNotes
	}

	if err := s.companies.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	s.logger.Info("Company settings updated",
		zap.String("company_id", companyID.String()),
	)

	return toCompanyResponse(company), nil
}

func toCompanyResponse(company *models.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:                 company.ID.String(),
		Name:               company.Name,
		Code:               company.Code,
		DefaultFormat:      string(company.DefaultFormat),
		MaxExportDocuments: company.MaxExportDocuments,
		AllowDraftExport:   company.AllowDraftExport,
		IncludeCreditNotes: company.IncludeCreditNotes,
	}
}
