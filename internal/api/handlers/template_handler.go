package handlers

import (
	"errors"

	"facturex/internal/dto"
	"facturex/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TemplateHandler struct {
	templateService *service.TemplateService
	logger          *zap.Logger
}

func NewTemplateHandler(templateService *service.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		logger:          logger,
	}
}

// CreateTemplate godoc
// @Summary Create a naming template
// @Description Create a filename pattern built from placeholders like {type}, {number}, {partner} and {date}
// @Tags templates
// @Accept json
// @Produce json
// @Param request body dto.CreateTemplateRequest true "Template definition"
// @Security Bearer
// @Success 201 {object} dto.TemplateResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/templates [post]
func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.templateService.Create(c.Context(), companyID, &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Error(),
			})
		}
		h.logger.Error("Failed to create template", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create template",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListTemplates godoc
// @Summary List naming templates
// @Description Get the company's naming templates
// @Tags templates
// @Produce json
// @Param include_inactive query bool false "Include deactivated templates" default(false)
// @Security Bearer
// @Success 200 {array} dto.TemplateResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/templates [get]
func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	includeInactive := c.QueryBool("include_inactive", false)

	templates, err := h.templateService.List(c.Context(), companyID, includeInactive)
	if err != nil {
		h.logger.Error("Failed to list templates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list templates",
		})
	}

	return c.JSON(templates)
}

// GetTemplate godoc
// @Summary Get a naming template
// @Description Get one naming template by ID
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Security Bearer
// @Success 200 {object} dto.TemplateResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	resp, err := h.templateService.Get(c.Context(), companyID, templateID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
		h.logger.Error("Failed to get template", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get template",
		})
	}

	return c.JSON(resp)
}

// UpdateTemplate godoc
// @Summary Update a naming template
// @Description Partially update a naming template; making it default displaces the previous default
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body dto.UpdateTemplateRequest true "Fields to change"
// @Security Bearer
// @Success 200 {object} dto.TemplateResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	var req dto.UpdateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.templateService.Update(c.Context(), companyID, templateID, &req)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Error(),
			})
		}
		h.logger.Error("Failed to update template", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update template",
		})
	}

	return c.JSON(resp)
}

// DeactivateTemplate godoc
// @Summary Deactivate a naming template
// @Description Soft-disable a template; if it was the default another active template is promoted
// @Tags templates
// @Param id path string true "Template ID"
// @Security Bearer
// @Success 204
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/templates/{id} [delete]
func (h *TemplateHandler) DeactivateTemplate(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	if err := h.templateService.Deactivate(c.Context(), companyID, templateID); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
		h.logger.Error("Failed to deactivate template", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deactivate template",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewTemplate godoc
// @Summary Preview a naming pattern
// @Description Render a pattern with sample invoice data without storing anything
// @Tags templates
// @Accept json
// @Produce json
// @Param request body dto.PreviewTemplateRequest true "Pattern to preview"
// @Security Bearer
// @Success 200 {object} dto.PreviewTemplateResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/templates/preview [post]
func (h *TemplateHandler) PreviewTemplate(c *fiber.Ctx) error {
	var req dto.PreviewTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.templateService.Preview(req.Pattern)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Error(),
			})
		}
		h.logger.Error("Failed to preview template", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to preview template",
		})
	}

	return c.JSON(resp)
}
