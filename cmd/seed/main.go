package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"facturex/internal/models"
	"facturex/internal/repository"
	"facturex/pkg/auth"
	"facturex/pkg/config"
	"facturex/pkg/logger"
	"facturex/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	demoCompanyCode = "DEMO"
	demoAdminEmail  = "admin@demo.test"
	demoPassword    = "demo1234"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.ApplyMigrations(ctx, db, "migrations"); err != nil {
		appLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	companyRepo := repository.NewCompanyRepository(db, appLogger)
	userRepo := repository.NewUserRepository(db, appLogger)
	templateRepo := repository.NewTemplateRepository(db, appLogger)
	docRepo := repository.NewDocumentRepository(db, appLogger)

	appLogger.Info("Starting database seeding...")

	// The demo company doubles as the idempotency marker: if it exists
	// the database was already seeded.
	if _, err := companyRepo.GetByCode(ctx, demoCompanyCode); err == nil {
		appLogger.Info("Demo company already exists, nothing to do", zap.String("code", demoCompanyCode))
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		appLogger.Fatal("Failed to check for demo company", zap.Error(err))
	}

	company, err := seedCompany(ctx, companyRepo, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to seed company", zap.Error(err))
	}

	if err := seedAdminUser(ctx, userRepo, company.ID, appLogger); err != nil {
		appLogger.Fatal("Failed to seed admin user", zap.Error(err))
	}

	if err := seedTemplates(ctx, templateRepo, company.ID, appLogger); err != nil {
		appLogger.Fatal("Failed to seed naming templates", zap.Error(err))
	}

	if err := seedDocuments(ctx, docRepo, company.ID, cfg.Export.UploadDir, appLogger); err != nil {
		appLogger.Fatal("Failed to seed documents", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!",
		zap.String("company_code", demoCompanyCode),
		zap.String("admin_email", demoAdminEmail),
		zap.String("admin_password", demoPassword),
	)
}

func seedCompany(ctx context.Context, repo *repository.CompanyRepository, logger *zap.Logger) (*models.Company, error) {
	now := time.Now()
	company := &models.Company{
		ID:                 uuid.New(),
		Name:               "Empresa Demo SL",
		Code:               demoCompanyCode,
		DefaultFormat:      models.FormatZip,
		MaxExportDocuments: models.DefaultMaxExportDocuments,
		AllowDraftExport:   false,
		IncludeCreditNotes: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repo.Create(ctx, company); err != nil {
		return nil, err
	}

	logger.Info("Created demo company", zap.String("name", company.Name), zap.String("code", company.Code))
	return company, nil
}

func seedAdminUser(ctx context.Context, repo *repository.UserRepository, companyID uuid.UUID, logger *zap.Logger) error {
	hashed, err := auth.HashPassword(demoPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		CompanyID: companyID,
		Username:  "admin",
		Email:     demoAdminEmail,
		Password:  hashed,
		Role:      models.UserRoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, user); err != nil {
		return err
	}

	logger.Info("Created admin user", zap.String("email", user.Email))
	return nil
}

func seedTemplates(ctx context.Context, repo *repository.TemplateRepository, companyID uuid.UUID, logger *zap.Logger) error {
	now := time.Now()
	templates := []*models.NamingTemplate{
		{
			ID:          uuid.New(),
			CompanyID:   companyID,
			Name:        "Estándar",
			Pattern:     "{type}_{number}_{partner}_{date}",
			Description: "Patrón por defecto: tipo, número, cliente y fecha",
			IsDefault:   true,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          uuid.New(),
			CompanyID:   companyID,
			Name:        "Contable",
			Pattern:     "{year}_{month}_{number}_{partner}",
			Description: "Ordenado por período contable",
			IsDefault:   false,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	for _, tmpl := range templates {
		if err := repo.Create(ctx, tmpl); err != nil {
			return err
		}
		logger.Info("Created naming template", zap.String("name", tmpl.Name), zap.String("pattern", tmpl.Pattern))
	}
	return nil
}

func seedDocuments(ctx context.Context, repo *repository.DocumentRepository, companyID uuid.UUID, uploadDir string, logger *zap.Logger) error {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	fixtures := []struct {
		kind      models.DocumentKind
		number    string
		partner   string
		reference string
		issueDate string
		status    models.DocumentStatus
	}{
		{models.DocumentKindCustomerInvoice, "FAC-2025-0001", "Talleres Garrido SL", "PED-1001", "2025-01-15", models.DocumentStatusPosted},
		{models.DocumentKindCustomerInvoice, "FAC-2025-0002", "Distribuciones Vega SA", "", "2025-02-03", models.DocumentStatusPosted},
		{models.DocumentKindCustomerRefund, "RECT-2025-0001", "Talleres Garrido SL", "PED-1001", "2025-02-20", models.DocumentStatusPosted},
		{models.DocumentKindVendorInvoice, "PROV-2025-0105", "Suministros Industriales Eibar", "ALB-4410", "2025-01-28", models.DocumentStatusPosted},
		{models.DocumentKindVendorInvoice, "PROV-2025-0152", "Papelería Central", "", "2025-03-02", models.DocumentStatusDraft},
		{models.DocumentKindVendorRefund, "ABO-2025-0003", "Suministros Industriales Eibar", "ALB-4410", "2025-03-09", models.DocumentStatusPosted},
	}

	now := time.Now()
	for _, f := range fixtures {
		issueDate, err := time.Parse("2006-01-02", f.issueDate)
		if err != nil {
			return fmt.Errorf("bad fixture date %q: %w", f.issueDate, err)
		}

		id := uuid.New()
		fileName := id.String() + ".pdf"
		pdf := samplePDF(fmt.Sprintf("FACTURA %s - %s", f.number, f.partner))
		if err := os.WriteFile(filepath.Join(uploadDir, fileName), pdf, 0644); err != nil {
			return fmt.Errorf("failed to write sample PDF: %w", err)
		}

		doc := &models.Document{
			ID:          id,
			CompanyID:   companyID,
			Kind:        f.kind,
			Number:      f.number,
			PartnerName: f.partner,
			Reference:   f.reference,
			IssueDate:   &issueDate,
			Status:      f.status,
			StoragePath: "/uploads/" + fileName,
			FileSize:    int64(len(pdf)),
			Source:      models.DocumentSourceManual,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, doc); err != nil {
			return err
		}

		logger.Info("Created sample document",
			zap.String("number", f.number),
			zap.String("kind", string(f.kind)),
			zap.String("status", string(f.status)),
		)
	}
	return nil
}

// samplePDF builds a minimal one-page PDF with a single line of text.
// Offsets in the xref table are computed while writing so the file is
// well formed and readable by any viewer.
func samplePDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(text)
	stream := fmt.Sprintf("BT /F1 14 Tf 72 770 Td (%s) Tj ET", escaped)

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes()
}
