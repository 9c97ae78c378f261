package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facturex/internal/api"
	"facturex/internal/api/handlers"
	"facturex/internal/repository"
	"facturex/internal/service"
	"facturex/pkg/auth"
	"facturex/pkg/config"
	"facturex/pkg/logger"
	"facturex/pkg/postgres"

	"go.uber.org/zap"
)

// @title FacturEx API
// @version 1.0
// @description Batch export of accounting documents as named archives
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@facturex.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting FacturEx service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.ApplyMigrations(ctx, db, "migrations"); err != nil {
		appLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	companyRepo := repository.NewCompanyRepository(db, appLogger)
	docRepo := repository.NewDocumentRepository(db, appLogger)
	templateRepo := repository.NewTemplateRepository(db, appLogger)
	exportRepo := repository.NewExportRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, companyRepo, jwtManager, appLogger)

	ocrService := service.NewOCRService(appLogger)

	// GigaChat extraction is optional. The nil check happens on the
	// concrete type so the interface stays nil when the key is unset.
	var fieldExtractor service.FieldExtractor
	if cfg.GigaChat.APIKey != "" {
		llmService, err := service.NewLLMService(&cfg.GigaChat, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
		}
		defer llmService.Close()
		fieldExtractor = llmService
	} else {
		appLogger.Warn("GigaChat API key not set, invoice field extraction will use regular expressions only")
	}

	intakeService := service.NewIntakeService(docRepo, ocrService, fieldExtractor, cfg.Export.UploadDir, appLogger)
	selectionService := service.NewSelectionService(docRepo, appLogger)
	renderer := service.NewFileRenderer(cfg.Export.UploadDir, appLogger)
	exportService := service.NewExportService(selectionService, renderer, companyRepo, templateRepo, exportRepo, cfg.Export.DownloadSecret, appLogger)
	templateService := service.NewTemplateService(templateRepo, appLogger)
	companyService := service.NewCompanyService(companyRepo, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	docHandler := handlers.NewDocumentHandler(intakeService, appLogger)
	exportHandler := handlers.NewExportHandler(exportService, appLogger)
	templateHandler := handlers.NewTemplateHandler(templateService, appLogger)
	companyHandler := handlers.NewCompanyHandler(companyService, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, docHandler, exportHandler, templateHandler, companyHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
