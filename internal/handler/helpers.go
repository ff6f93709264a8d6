package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/middleware"
	"github.com/noah-isme/praxis-api/internal/service"
	"github.com/noah-isme/praxis-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return 0, fmt.Errorf("%s required", key)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

// parseAsOf reads the optional as_of query parameter.
func parseAsOf(c *fiber.Ctx) (time.Time, error) {
	asOf, err := dto.ParseDate(strings.TrimSpace(c.Query("as_of")))
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of must be YYYY-MM-DD")
	}
	return asOf, nil
}

func actorFromContext(c *fiber.Ctx) logbook.Actor {
	actor := logbook.Actor{}
	switch id := c.Locals(middleware.LocalUserID).(type) {
	case uint:
		actor.ID = id
	case int:
		if id > 0 {
			actor.ID = uint(id)
		}
	}
	if role, ok := c.Locals(middleware.LocalUserRole).(string); ok {
		actor.Role = strings.ToLower(strings.TrimSpace(role))
	}
	return actor
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		logger = middleware.RequestLogger(c, base)
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []fiber.Map {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]fiber.Map, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, fiber.Map{"field": fe.Field(), "rule": fe.Tag()})
	}
	return details
}

// handleError maps service and workflow errors onto HTTP responses.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var (
		notEligible  *logbook.NotEligibleError
		unauthorized *logbook.UnauthorizedActorError
		invalid      *logbook.InvalidTransitionError
		limit        *service.SimulatedLimitError
	)

	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.As(err, &notEligible):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "logbook not eligible", fiber.Map{
			"to":      notEligible.To,
			"reasons": notEligible.Reasons,
		})
	case errors.As(err, &unauthorized):
		return utils.Fail(c, fiber.StatusForbidden, "actor not allowed to perform transition", fiber.Map{
			"required": unauthorized.Required,
			"from":     unauthorized.From,
			"to":       unauthorized.To,
		})
	case errors.As(err, &invalid):
		return utils.Fail(c, fiber.StatusConflict, "invalid transition", fiber.Map{
			"from": invalid.From,
			"to":   invalid.To,
		})
	case errors.As(err, &limit):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "simulated hours limit exceeded", dto.NewSimulatedCheckResponse(limit.Check))
	case errors.Is(err, compliance.ErrUnknownProgram):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTraineeNotFound),
		errors.Is(err, service.ErrLogbookNotFound),
		errors.Is(err, service.ErrCommentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSectionLocked):
		return utils.SendError(c, fiber.StatusLocked, err.Error())
	case errors.Is(err, service.ErrImmutableEditAttempt):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSupervisorNotAssigned),
		errors.Is(err, service.ErrInvalidComment):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
