package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/middleware"
	"github.com/noah-isme/praxis-api/internal/service"
	"github.com/noah-isme/praxis-api/internal/utils"
)

// EntryHandler records activity entries for the authenticated trainee.
type EntryHandler struct {
	service service.EntryService
	logger  zerolog.Logger
}

// NewEntryHandler constructs an entry handler.
func NewEntryHandler(service service.EntryService, logger zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		service: service,
		logger:  logger.With().Str("component", "entry_handler").Logger(),
	}
}

// Register wires entry routes. Only trainees record entries.
func (h *EntryHandler) Register(router fiber.Router) {
	traineeOnly := middleware.AuthOptions{Role: middleware.AuthRoleTrainee}
	router.Post("/practice", middleware.WithAuth(h.recordPractice, traineeOnly))
	router.Post("/professional-development", middleware.WithAuth(h.recordProfessionalDevelopment, traineeOnly))
	router.Post("/supervision", middleware.WithAuth(h.recordSupervision, traineeOnly))
}

func (h *EntryHandler) recordPractice(c *fiber.Ctx) error {
	var payload dto.PracticeEntryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.RecordPractice(withRequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "practice entry recorded", resp)
}

func (h *EntryHandler) recordProfessionalDevelopment(c *fiber.Ctx) error {
	var payload dto.ProfessionalDevelopmentEntryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.RecordProfessionalDevelopment(withRequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "professional development entry recorded", resp)
}

func (h *EntryHandler) recordSupervision(c *fiber.Ctx) error {
	var payload dto.SupervisionEntryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.RecordSupervision(withRequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "supervision entry recorded", resp)
}
