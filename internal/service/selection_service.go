package service

import (
	"context"
	"fmt"

	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentStore is the slice of the document repository the selection
// step needs.
type DocumentStore interface {
	GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Document, error)
	Search(ctx context.Context, companyID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error)
}

type SelectionService struct {
	documents DocumentStore
	logger    *zap.Logger
}

func NewSelectionService(documents DocumentStore, logger *zap.Logger) *SelectionService {
	return &SelectionService{
		documents: documents,
		logger:    logger,
	}
}

// Select resolves the documents an export request refers to. Explicit
// IDs are authoritative and bypass the filters; otherwise the request
// flags and dates are combined conjunctively. An empty result is
// ErrSelectionEmpty. Draft documents are rejected unless the company
// allows exporting them.
func (s *SelectionService) Select(ctx context.Context, req *models.ExportRequest, company *models.Company) ([]*models.Document, error) {
	var (
		documents []*models.Document
		err       error
	)

	if len(req.ExplicitIDs) > 0 {
		documents, err = s.documents.GetByIDs(ctx, req.CompanyID, dedupeIDs(req.ExplicitIDs))
	} else {
		kinds := requestedKinds(req)
		if len(kinds) == 0 {
			return nil, ErrSelectionEmpty
		}

		filter := models.DocumentFilter{
			Kinds:    kinds,
			DateFrom: req.DateFrom,
			DateTo:   req.DateTo,
		}
		if req.StatusFilter != "" && req.StatusFilter != models.StatusFilterAll {
			filter.Status = models.DocumentStatus(req.StatusFilter)
		}

		documents, err = s.documents.Search(ctx, req.CompanyID, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	if len(documents) == 0 {
		return nil, ErrSelectionEmpty
	}

	if !company.AllowDraftExport {
		drafts := 0
		for _, doc := range documents {
			if doc.Status == models.DocumentStatusDraft {
				drafts++
			}
		}
		if drafts > 0 {
			return nil, &ValidationError{
				Field:  "selection",
				Reason: fmt.Sprintf("la selección incluye %d documentos en borrador y la empresa no permite exportarlos", drafts),
			}
		}
	}

	s.logger.Debug("Documents selected for export",
		zap.String("company_id", company.ID.String()),
		zap.Int("count", len(documents)),
	)

	return documents, nil
}

func requestedKinds(req *models.ExportRequest) []models.DocumentKind {
	var kinds []models.DocumentKind
	if req.IncludeCustomerInvoices {
		kinds = append(kinds, models.DocumentKindCustomerInvoice)
	}
	if req.IncludeVendorBills {
		kinds = append(kinds, models.DocumentKindVendorInvoice)
	}
	if req.IncludeCreditNotes {
		kinds = append(kinds, models.DocumentKindCustomerRefund, models.DocumentKindVendorRefund)
	}
	return kinds
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
