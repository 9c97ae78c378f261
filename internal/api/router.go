package api

import (
	"facturex/docs"
	"facturex/internal/api/handlers"
	"facturex/pkg/auth"
	"facturex/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	docHandler *handlers.DocumentHandler,
	exportHandler *handlers.ExportHandler,
	templateHandler *handlers.TemplateHandler,
	companyHandler *handlers.CompanyHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo // ensure docs package is imported and init() is called
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes (public)
	user := app.Group("/user")
	authRoutes := user.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)

	// Archive download. The HMAC token in the query string is the only
	// credential; must be registered before the authenticated group or
	// the JWT middleware would swallow it.
	app.Get("/api/v1/exports/:id/download", exportHandler.DownloadExport)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	// Document intake routes
	documents := protected.Group("/documents")
	documents.Post("/upload", docHandler.UploadDocument)
	documents.Get("", docHandler.ListDocuments)
	documents.Get("/:id", docHandler.GetDocument)
	documents.Post("/:id/process", docHandler.ProcessDocument)

	// Export routes
	exports := protected.Group("/exports")
	exports.Post("", exportHandler.CreateExport)
	exports.Get("", exportHandler.ListExports)
	exports.Get("/:id", exportHandler.GetExport)
	exports.Get("/:id/status", exportHandler.GetExportStatus)

	// Naming template routes
	templates := protected.Group("/templates")
	templates.Post("", templateHandler.CreateTemplate)
	templates.Get("", templateHandler.ListTemplates)
	templates.Post("/preview", templateHandler.PreviewTemplate)
	templates.Get("/:id", templateHandler.GetTemplate)
	templates.Put("/:id", templateHandler.UpdateTemplate)
	templates.Delete("/:id", templateHandler.DeactivateTemplate)

	// Company settings
	company := protected.Group("/company")
	company.Get("", companyHandler.GetCompany)
	company.Put("", middleware.RequireRole("admin", appLogger), companyHandler.UpdateCompany)

	return app
}
