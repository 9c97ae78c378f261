package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"facturex/internal/dto"
	"facturex/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ExportHandler struct {
	exportService *service.ExportService
	logger        *zap.Logger
}

func NewExportHandler(exportService *service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        logger,
	}
}

// CreateExport godoc
// @Summary Export documents as an archive
// @Description Select documents by filters or explicit IDs, render their filenames and build a downloadable archive
// @Tags exports
// @Accept json
// @Produce json
// @Param request body dto.CreateExportRequest true "Export request"
// @Security Bearer
// @Success 200 {object} dto.ExportResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/exports [post]
func (h *ExportHandler) CreateExport(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateExportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.exportService.Create(c.Context(), companyID, userID, &req)
	if err != nil {
		return h.respondExportError(c, err)
	}

	return c.JSON(resp)
}

// respondExportError maps the export error taxonomy onto HTTP codes.
func (h *ExportHandler) respondExportError(c *fiber.Ctx, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Error(),
		})
	}

	var cerr *service.CodecUnavailableError
	if errors.As(err, &cerr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": cerr.Error(),
		})
	}

	if errors.Is(err, service.ErrSelectionEmpty) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "No documents match the selection",
		})
	}

	var terr *service.TotalFailureError
	if errors.As(err, &terr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "No documents could be exported",
			"details": terr.Error(),
		})
	}

	h.logger.Error("Export failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Export failed",
	})
}

// ListExports godoc
// @Summary List exports
// @Description Get the company's export history, newest first
// @Tags exports
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {array} dto.ExportListItem
// @Failure 401 {object} map[string]string
// @Router /api/v1/exports [get]
func (h *ExportHandler) ListExports(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	items, err := h.exportService.ListExports(c.Context(), companyID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list exports", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list exports",
		})
	}

	return c.JSON(items)
}

// GetExport godoc
// @Summary Get an export
// @Description Get one export record by ID
// @Tags exports
// @Produce json
// @Param id path string true "Export ID"
// @Security Bearer
// @Success 200 {object} dto.ExportResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/exports/{id} [get]
func (h *ExportHandler) GetExport(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	exportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid export ID",
		})
	}

	resp, err := h.exportService.GetExport(c.Context(), companyID, exportID)
	if err != nil {
		if errors.Is(err, service.ErrExportNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Export not found",
			})
		}
		h.logger.Error("Failed to get export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get export",
		})
	}

	return c.JSON(resp)
}

// GetExportStatus godoc
// @Summary Get export progress
// @Description Get the processed/succeeded/failed counters of an export
// @Tags exports
// @Produce json
// @Param id path string true "Export ID"
// @Security Bearer
// @Success 200 {object} dto.ExportStatusResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/exports/{id}/status [get]
func (h *ExportHandler) GetExportStatus(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	exportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid export ID",
		})
	}

	resp, err := h.exportService.GetStatus(c.Context(), companyID, exportID)
	if err != nil {
		if errors.Is(err, service.ErrExportNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Export not found",
			})
		}
		h.logger.Error("Failed to get export status", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get export status",
		})
	}

	return c.JSON(resp)
}

// DownloadExport godoc
// @Summary Download an export archive
// @Description Download the archive of a finished export; authenticated by the HMAC token from the export response
// @Tags exports
// @Produce application/octet-stream
// @Param id path string true "Export ID"
// @Param token query string true "Download token"
// @Success 200 {file} binary
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/exports/{id}/download [get]
func (h *ExportHandler) DownloadExport(c *fiber.Ctx) error {
	exportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid export ID",
		})
	}

	record, err := h.exportService.GetArchive(c.Context(), exportID, c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDownloadToken):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid download token",
			})
		case errors.Is(err, service.ErrExportNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Export not found",
			})
		case errors.Is(err, service.ErrExportNotReady):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Export is not ready for download",
			})
		}
		h.logger.Error("Failed to download export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to download export",
		})
	}

	c.Set(fiber.HeaderContentType, service.FormatContentType(record.Format))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", record.ArchiveName))
	c.Set(fiber.HeaderContentLength, strconv.Itoa(len(record.ArchiveData)))
	return c.Send(record.ArchiveData)
}
