package handlers

import (
	"errors"

	"facturex/internal/dto"
	"facturex/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	companyService *service.CompanyService
	logger         *zap.Logger
}

func NewCompanyHandler(companyService *service.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		logger:         logger,
	}
}

// GetCompany godoc
// @Summary Get company settings
// @Description Get the authenticated user's company and its export defaults
// @Tags company
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.CompanyResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/company [get]
func (h *CompanyHandler) GetCompany(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resp, err := h.companyService.Get(c.Context(), companyID)
	if err != nil {
		h.logger.Error("Failed to get company", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get company",
		})
	}

	return c.JSON(resp)
}

// UpdateCompany godoc
// @Summary Update company settings
// @Description Change export defaults: archive format, document ceiling, draft policy, credit note default
// @Tags company
// @Accept json
// @Produce json
// @Param request body dto.UpdateCompanyRequest true "Settings to change"
// @Security Bearer
// @Success 200 {object} dto.CompanyResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/company [put]
func (h *CompanyHandler) UpdateCompany(c *fiber.Ctx) error {
	companyID, err := getCompanyID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.UpdateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.companyService.Update(c.Context(), companyID, &req)
	if err != nil {
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
		h.logger.Error("Failed to update company", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update company",
		})
	}

	return c.JSON(resp)
}
