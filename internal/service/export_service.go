package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"facturex/internal/dto"
	"facturex/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidDownloadToken = errors.New("invalid download token")
	ErrExportNotReady       = errors.New("export is not ready for download")
)

// CompanyStore is the slice of the company repository the export
// pipeline needs.
type CompanyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// TemplateProvider resolves naming templates and records their usage.
type TemplateProvider interface {
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.NamingTemplate, error)
	GetDefault(ctx context.Context, companyID uuid.UUID) (*models.NamingTemplate, error)
	RecordUsage(ctx context.Context, id uuid.UUID) error
}

// ExportStore persists export records and their archives.
type ExportStore interface {
	Create(ctx context.Context, rec *models.ExportRecord) error
	UpdateProgress(ctx context.Context, id uuid.UUID, processed int) error
	Finish(ctx context.Context, rec *models.ExportRecord) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.ExportRecord, error)
	GetArchive(ctx context.Context, id uuid.UUID) (*models.ExportRecord, error)
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.ExportRecord, error)
}

// ProgressFunc is notified after every processed batch. It is optional;
// passing nil changes nothing about the run.
type ProgressFunc func(processed, total int)

type ExportService struct {
	selection      *SelectionService
	renderer       DocumentRenderer
	companies      CompanyStore
	templates      TemplateProvider
	exports        ExportStore
	downloadSecret []byte
	logger         *zap.Logger
}

func NewExportService(
	selection *SelectionService,
	renderer DocumentRenderer,
	companies CompanyStore,
	templates TemplateProvider,
	exports ExportStore,
	downloadSecret string,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		selection:      selection,
		renderer:       renderer,
		companies:      companies,
		templates:      templates,
		exports:        exports,
		downloadSecret: []byte(downloadSecret),
		logger:         logger,
	}
}

// BuildRequest turns the HTTP payload into an ExportRequest, filling
// unset fields from the company configuration.
func (s *ExportService) BuildRequest(ctx context.Context, companyID, userID uuid.UUID, in *dto.CreateExportRequest) (*models.ExportRequest, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	req := &models.ExportRequest{
		CompanyID:               companyID,
		UserID:                  userID,
		IncludeCustomerInvoices: true,
		IncludeVendorBills:      false,
		IncludeCreditNotes:      company.IncludeCreditNotes,
		StatusFilter:            string(models.DocumentStatusPosted),
		Format:                  company.DefaultFormat,
		Password:                in.Password,
		BatchSize:               models.DefaultBatchSize,
		OrganizeInFolders:       in.OrganizeInFolders,
	}

	if in.IncludeCustomerInvoices != nil {
		req.IncludeCustomerInvoices = *in.IncludeCustomerInvoices
	}
	if in.IncludeVendorBills != nil {
		req.IncludeVendorBills = *in.IncludeVendorBills
	}
	if in.IncludeCreditNotes != nil {
		req.IncludeCreditNotes = *in.IncludeCreditNotes
	}
	if in.StatusFilter != "" {
		req.StatusFilter = in.StatusFilter
	}
	if in.Format != "" {
		req.Format = models.ArchiveFormat(in.Format)
	}
	if in.BatchSize != nil {
		req.BatchSize = *in.BatchSize
	}

	if in.DateFrom != "" {
		from, err := time.Parse("2006-01-02", in.DateFrom)
		if err != nil {
			return nil, &ValidationError{Field: "date_from", Reason: "formato esperado AAAA-MM-DD"}
		}
		req.DateFrom = &from
	}
	if in.DateTo != "" {
		to, err := time.Parse("2006-01-02", in.DateTo)
		if err != nil {
			return nil, &ValidationError{Field: "date_to", Reason: "formato esperado AAAA-MM-DD"}
		}
		req.DateTo = &to
	}

	if in.TemplateID != "" {
		tmplID, err := uuid.Parse(in.TemplateID)
		if err != nil {
			return nil, &ValidationError{Field: "template_id", Reason: "identificador inválido"}
		}
		req.TemplateID = &tmplID
	}

	for _, raw := range in.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &ValidationError{Field: "document_ids", Reason: fmt.Sprintf("identificador inválido: %s", raw)}
		}
		req.ExplicitIDs = append(req.ExplicitIDs, id)
	}

	return req, nil
}

func validateRequest(req *models.ExportRequest) error {
	if !KnownFormat(req.Format) {
		return &ValidationError{Field: "format", Reason: fmt.Sprintf("formato desconocido: %s", req.Format)}
	}
	if !FormatAvailable(req.Format) {
		return &CodecUnavailableError{Format: req.Format}
	}
	if req.Format == models.FormatZipPassword && req.Password == "" {
		return &ValidationError{Field: "password", Reason: "obligatoria para el formato zip_password"}
	}
	if req.Password != "" && !PasswordCapable(req.Format) {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("el formato %s no soporta contraseña", req.Format)}
	}
	if req.BatchSize < models.MinBatchSize || req.BatchSize > models.MaxBatchSize {
		return &ValidationError{
			Field:  "batch_size",
			Reason: fmt.Sprintf("debe estar entre %d y %d", models.MinBatchSize, models.MaxBatchSize),
		}
	}
	switch req.StatusFilter {
	case string(models.DocumentStatusDraft), string(models.DocumentStatusPosted), models.StatusFilterAll:
	default:
		return &ValidationError{Field: "status_filter", Reason: "valores permitidos: draft, posted, all"}
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return &ValidationError{Field: "date_from", Reason: "no puede ser posterior a date_to"}
	}
	return nil
}

// Run executes one export synchronously: validate, select, then batch
// through the documents writing the archive, and persist the result.
// Per-document failures are recorded and skipped; if every document
// fails the run ends in TotalFailureError.
func (s *ExportService) Run(ctx context.Context, req *models.ExportRequest, progress ProgressFunc) (*models.ExportOutcome, *models.ExportRecord, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	company, err := s.companies.GetByID(ctx, req.CompanyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load company: %w", err)
	}

	pattern, templateID, err := s.resolvePattern(ctx, req, company)
	if err != nil {
		return nil, nil, err
	}

	documents, err := s.selection.Select(ctx, req, company)
	if err != nil {
		return nil, nil, err
	}

	ceiling := company.MaxExportDocuments
	if ceiling <= 0 {
		ceiling = models.DefaultMaxExportDocuments
	}
	if len(documents) > ceiling {
		return nil, nil, &ValidationError{
			Field:  "selection",
			Reason: fmt.Sprintf("la selección (%d documentos) supera el máximo permitido (%d)", len(documents), ceiling),
		}
	}

	record := newExportRecord(req, len(documents))
	if err := s.exports.Create(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("failed to create export record: %w", err)
	}

	s.logger.Info("Export started",
		zap.String("export_id", record.ID.String()),
		zap.String("company_id", req.CompanyID.String()),
		zap.String("format", string(req.Format)),
		zap.Int("documents", len(documents)),
		zap.Int("batch_size", req.BatchSize),
	)

	started := time.Now()

	var buf bytes.Buffer
	writer, err := NewArchiveWriter(&buf, req.Format, req.Password)
	if err != nil {
		return nil, record, s.failRun(ctx, record, started, nil, err)
	}

	acc := NewOutcomeAccumulator(len(documents), req.Format, company.Code)
	alloc := newNameAllocator()

	for start := 0; start < len(documents); start += req.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, record, s.failRun(ctx, record, started, acc, err)
		}

		end := start + req.BatchSize
		if end > len(documents) {
			end = len(documents)
		}

		for _, doc := range documents[start:end] {
			s.exportOne(ctx, doc, pattern, templateID, company.Name, req.OrganizeInFolders, writer, acc, alloc)
		}

		if err := s.exports.UpdateProgress(ctx, record.ID, acc.Processed()); err != nil {
			s.logger.Warn("Failed to update export progress", zap.Error(err))
		}
		if progress != nil {
			progress(acc.Processed(), len(documents))
		}
	}

	if err := writer.Close(); err != nil {
		return nil, record, s.failRun(ctx, record, started, acc, fmt.Errorf("failed to close archive: %w", err))
	}

	if acc.Succeeded() == 0 {
		totalErr := &TotalFailureError{Total: len(documents), Failures: acc.Failures()}
		return nil, record, s.failRun(ctx, record, started, acc, totalErr)
	}

	outcome := acc.Finalize(int64(buf.Len()))

	record.State = models.ExportStateDone
	record.ProcessedCount = acc.Processed()
	record.SuccessCount = outcome.Succeeded
	record.FailedCount = outcome.Failed
	record.FailureSummary = FailureSummary(outcome.Failures, 5)
	record.ArchiveName = outcome.ArchiveName
	record.ArchiveData = buf.Bytes()
	record.ArchiveSize = outcome.ArchiveSize
	record.OriginalSize = outcome.OriginalSize
	record.CompressionRatio = outcome.CompressionRatio
	record.DurationSeconds = outcome.Elapsed.Seconds()

	if err := s.exports.Finish(ctx, record); err != nil {
		return nil, record, fmt.Errorf("failed to store export result: %w", err)
	}

	s.logger.Info("Export finished",
		zap.String("export_id", record.ID.String()),
		zap.String("archive", outcome.ArchiveName),
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("failed", outcome.Failed),
		zap.Int64("archive_size", outcome.ArchiveSize),
		zap.Float64("compression_ratio", outcome.CompressionRatio),
		zap.Duration("elapsed", outcome.Elapsed),
	)

	return outcome, record, nil
}

// exportOne renders the name and content of a single document and adds
// it to the archive. Failures are recorded in the accumulator.
func (s *ExportService) exportOne(
	ctx context.Context,
	doc *models.Document,
	pattern string,
	templateID *uuid.UUID,
	companyName string,
	organize bool,
	writer archiveWriter,
	acc *OutcomeAccumulator,
	alloc *nameAllocator,
) {
	label := doc.Number
	if label == "" {
		label = doc.ID.String()
	}

	name, err := RenderDocumentName(pattern, doc, companyName)
	if err != nil {
		s.logger.Warn("Filename render failed, using fallback",
			zap.String("document", label),
			zap.Error(err),
		)
		name = FallbackDocumentName(doc)
	} else if templateID != nil {
		if err := s.templates.RecordUsage(ctx, *templateID); err != nil {
			s.logger.Warn("Failed to record template usage", zap.Error(err))
		}
	}

	data, err := s.renderer.Render(ctx, doc)
	if err != nil {
		acc.RecordFailure(label, err)
		return
	}

	if organize {
		name = kindFolder(doc.Kind) + "/" + name
	}
	name = alloc.Claim(name)

	if err := writer.Add(name, data); err != nil {
		acc.RecordFailure(label, err)
		return
	}

	acc.RecordSuccess(int64(len(data)))
}

// resolvePattern picks the naming pattern for a run. An explicit
// template must exist, be active and valid; otherwise the company
// default is used, falling back to the built-in pattern.
func (s *ExportService) resolvePattern(ctx context.Context, req *models.ExportRequest, company *models.Company) (string, *uuid.UUID, error) {
	if req.TemplateID != nil {
		tmpl, err := s.templates.GetByID(ctx, company.ID, *req.TemplateID)
		if err != nil {
			return "", nil, &ValidationError{Field: "template_id", Reason: "la plantilla no existe"}
		}
		if !tmpl.Active {
			return "", nil, &ValidationError{Field: "template_id", Reason: "la plantilla está desactivada"}
		}
		if err := ValidatePattern(tmpl.Pattern); err != nil {
			return "", nil, err
		}
		return tmpl.Pattern, &tmpl.ID, nil
	}

	tmpl, err := s.templates.GetDefault(ctx, company.ID)
	if err != nil {
		return DefaultPattern, nil, nil
	}
	if err := ValidatePattern(tmpl.Pattern); err != nil {
		s.logger.Warn("Default template has an invalid pattern, using built-in",
			zap.String("template_id", tmpl.ID.String()),
			zap.Error(err),
		)
		return DefaultPattern, nil, nil
	}
	return tmpl.Pattern, &tmpl.ID, nil
}

// failRun marks the record failed and returns err unchanged so the
// caller can propagate it.
func (s *ExportService) failRun(ctx context.Context, record *models.ExportRecord, started time.Time, acc *OutcomeAccumulator, err error) error {
	record.State = models.ExportStateFailed
	record.DurationSeconds = time.Since(started).Seconds()
	if acc != nil {
		record.ProcessedCount = acc.Processed()
		record.SuccessCount = acc.Succeeded()
		record.FailedCount = acc.Failed()
		record.FailureSummary = FailureSummary(acc.Failures(), 5)
	}
	if record.FailureSummary == "" {
		record.FailureSummary = err.Error()
	}

	if ferr := s.exports.Finish(ctx, record); ferr != nil {
		s.logger.Error("Failed to persist failed export record",
			zap.String("export_id", record.ID.String()),
			zap.Error(ferr),
		)
	}

	s.logger.Error("Export failed",
		zap.String("export_id", record.ID.String()),
		zap.Error(err),
	)
	return err
}

func newExportRecord(req *models.ExportRequest, total int) *models.ExportRecord {
	return &models.ExportRecord{
		ID:                      uuid.New(),
		CompanyID:               req.CompanyID,
		UserID:                  req.UserID,
		State:                   models.ExportStateProcessing,
		Format:                  req.Format,
		BatchSize:               req.BatchSize,
		IncludeCustomerInvoices: req.IncludeCustomerInvoices,
		IncludeVendorBills:      req.IncludeVendorBills,
		IncludeCreditNotes:      req.IncludeCreditNotes,
		DateFrom:                req.DateFrom,
		DateTo:                  req.DateTo,
		StatusFilter:            req.StatusFilter,
		TotalCount:              total,
		CreatedAt:               time.Now(),
	}
}

// Create runs an export for the HTTP layer and shapes the response.
func (s *ExportService) Create(ctx context.Context, companyID, userID uuid.UUID, in *dto.CreateExportRequest) (*dto.ExportResponse, error) {
	req, err := s.BuildRequest(ctx, companyID, userID, in)
	if err != nil {
		return nil, err
	}

	outcome, record, err := s.Run(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	resp := s.toExportResponse(record)
	resp.Failures = toFailureItems(outcome.Failures)
	if outcome.Failed > 0 {
		resp.Warning = fmt.Sprintf("%d de %d documentos no pudieron exportarse", outcome.Failed, outcome.Total)
	}
	return resp, nil
}

func (s *ExportService) GetExport(ctx context.Context, companyID, id uuid.UUID) (*dto.ExportResponse, error) {
	record, err := s.exports.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, ErrExportNotFound
	}
	return s.toExportResponse(record), nil
}

func (s *ExportService) GetStatus(ctx context.Context, companyID, id uuid.UUID) (*dto.ExportStatusResponse, error) {
	record, err := s.exports.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, ErrExportNotFound
	}

	resp := &dto.ExportStatusResponse{
		ID:        record.ID.String(),
		State:     string(record.State),
		Total:     record.TotalCount,
		Processed: record.ProcessedCount,
		Succeeded: record.SuccessCount,
		Failed:    record.FailedCount,
	}
	if record.State == models.ExportStateDone {
		resp.DownloadURL = s.downloadURL(record.ID)
	}
	return resp, nil
}

func (s *ExportService) ListExports(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*dto.ExportListItem, error) {
	records, err := s.exports.List(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	items := make([]*dto.ExportListItem, len(records))
	for i, record := range records {
		items[i] = &dto.ExportListItem{
			ID:          record.ID.String(),
			State:       string(record.State),
			Format:      string(record.Format),
			ArchiveName: record.ArchiveName,
			Total:       record.TotalCount,
			Succeeded:   record.SuccessCount,
			Failed:      record.FailedCount,
			SuccessRate: record.SuccessRate(),
			ArchiveSize: record.ArchiveSize,
			CreatedAt:   record.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, nil
}

// GetArchive returns the stored archive after verifying the download
// token. It is used by the unauthenticated download endpoint.
func (s *ExportService) GetArchive(ctx context.Context, id uuid.UUID, token string) (*models.ExportRecord, error) {
	if !s.VerifyDownloadToken(id, token) {
		return nil, ErrInvalidDownloadToken
	}

	record, err := s.exports.GetArchive(ctx, id)
	if err != nil {
		return nil, ErrExportNotFound
	}
	if record.State != models.ExportStateDone || len(record.ArchiveData) == 0 {
		return nil, ErrExportNotReady
	}
	return record, nil
}

// DownloadToken derives the possession token for an export. It is
// deterministic so nothing extra has to be stored.
func (s *ExportService) DownloadToken(id uuid.UUID) string {
	mac := hmac.New(sha256.New, s.downloadSecret)
	mac.Write([]byte(id.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ExportService) VerifyDownloadToken(id uuid.UUID, token string) bool {
	expected := s.DownloadToken(id)
	return hmac.Equal([]byte(expected), []byte(token))
}

func (s *ExportService) downloadURL(id uuid.UUID) string {
	return fmt.Sprintf("/api/v1/exports/%s/download?token=%s", id.String(), s.DownloadToken(id))
}

func (s *ExportService) toExportResponse(record *models.ExportRecord) *dto.ExportResponse {
	resp := &dto.ExportResponse{
		ID:                record.ID.String(),
		State:             string(record.State),
		Format:            string(record.Format),
		ArchiveName:       record.ArchiveName,
		Total:             record.TotalCount,
		Succeeded:         record.SuccessCount,
		Failed:            record.FailedCount,
		ArchiveSize:       record.ArchiveSize,
		OriginalSize:      record.OriginalSize,
		CompressionRatio:  record.CompressionRatio,
		SuccessRate:       record.SuccessRate(),
		ProcessingSeconds: record.DurationSeconds,
		CreatedAt:         record.CreatedAt.Format(time.RFC3339),
	}
	if record.State == models.ExportStateDone {
		resp.DownloadURL = s.downloadURL(record.ID)
	}
	return resp
}

func toFailureItems(failures []models.FailedDocument) []dto.ExportFailureItem {
	if len(failures) == 0 {
		return nil
	}
	items := make([]dto.ExportFailureItem, len(failures))
	for i, f := range failures {
		items[i] = dto.ExportFailureItem{Document: f.Label, Reason: f.Reason}
	}
	return items
}
