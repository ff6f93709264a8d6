package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/service"
	"github.com/noah-isme/praxis-api/internal/utils"
)

// LogbookHandler exposes the logbook review workflow.
type LogbookHandler struct {
	service service.LogbookService
	logger  zerolog.Logger
}

// NewLogbookHandler constructs a logbook handler.
func NewLogbookHandler(service service.LogbookService, logger zerolog.Logger) *LogbookHandler {
	return &LogbookHandler{
		service: service,
		logger:  logger.With().Str("component", "logbook_handler").Logger(),
	}
}

// Register wires logbook routes.
func (h *LogbookHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Post("/:id/transitions", h.transition)
	router.Post("/:id/close", h.close)
	router.Get("/:id/audit", h.audit)
	router.Get("/:id/comments", h.listComments)
	router.Post("/:id/comments", h.addComment)
	router.Patch("/:id/comments/:commentID", h.updateComment)
}

func (h *LogbookHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.Get(withRequestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "logbook", resp)
}

func (h *LogbookHandler) transition(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Transition(withRequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "logbook transitioned", resp)
}

func (h *LogbookHandler) close(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CloseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	resp, err := h.service.Close(withRequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "logbook closed", resp)
}

func (h *LogbookHandler) audit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.service.ListAudit(withRequestContext(c), actorFromContext(c), id, page, pageSize)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "audit trail", fiber.Map{"pagination": result.Pagination})
}

func (h *LogbookHandler) listComments(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	comments, err := h.service.ListComments(withRequestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "comments", comments)
}

func (h *LogbookHandler) addComment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	comment, err := h.service.AddComment(withRequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment added", comment)
}

func (h *LogbookHandler) updateComment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	commentID, err := parseUintParam(c, "commentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.UpdateComment(withRequestContext(c), actorFromContext(c), id, commentID); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendError(c, fiber.StatusConflict, service.ErrImmutableEditAttempt.Error())
}
