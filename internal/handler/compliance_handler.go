package handler

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/service"
	"github.com/noah-isme/praxis-api/internal/utils"
)

// ComplianceHandler exposes hour aggregation and requirement evaluation.
type ComplianceHandler struct {
	service   service.ComplianceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewComplianceHandler constructs a compliance handler.
func NewComplianceHandler(service service.ComplianceService, validator *validator.Validate, logger zerolog.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "compliance_handler").Logger(),
	}
}

// Register wires compliance routes.
func (h *ComplianceHandler) Register(router fiber.Router) {
	router.Get("/catalog/:program", h.catalog)
	router.Get("/trainees/:id/buckets", h.buckets)
	router.Get("/trainees/:id/report", h.report)
	router.Post("/trainees/:id/simulated-check", h.simulatedCheck)
}

func (h *ComplianceHandler) catalog(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.Params("program"), c.Query("track"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "catalog profile", dto.NewCatalogProfileResponse(profile))
}

func (h *ComplianceHandler) buckets(c *fiber.Ctx) error {
	traineeID, query, err := h.query(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := withRequestContext(c)
	if err := h.service.Authorize(ctx, query.Actor, traineeID); err != nil {
		return handleError(c, h.logger, err)
	}

	buckets, err := h.service.Aggregate(ctx, traineeID, query)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "hour buckets", dto.NewHourBucketsResponse(buckets))
}

func (h *ComplianceHandler) report(c *fiber.Ctx) error {
	traineeID, query, err := h.query(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := withRequestContext(c)
	if err := h.service.Authorize(ctx, query.Actor, traineeID); err != nil {
		return handleError(c, h.logger, err)
	}

	report, err := h.service.Report(ctx, traineeID, query)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "compliance report", dto.NewComplianceReportResponse(report))
}

func (h *ComplianceHandler) simulatedCheck(c *fiber.Ctx) error {
	traineeID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SimulatedCheckRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.logger, err)
	}

	ctx := withRequestContext(c)
	if err := h.service.Authorize(ctx, actorFromContext(c), traineeID); err != nil {
		return handleError(c, h.logger, err)
	}

	check, err := h.service.SimulatedCheck(ctx, traineeID, payload.AdditionalMinutes)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "simulated hours check", dto.NewSimulatedCheckResponse(check))
}

// query reads the trainee id, as_of and the optional prior_hours override.
// prior_hours takes "bucket:hours" pairs separated by commas; an empty value
// discards the declared prior hours.
func (h *ComplianceHandler) query(c *fiber.Ctx) (uint, service.ComplianceQuery, error) {
	traineeID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, service.ComplianceQuery{}, err
	}

	asOf, err := parseAsOf(c)
	if err != nil {
		return 0, service.ComplianceQuery{}, err
	}
	query := service.ComplianceQuery{AsOf: asOf, Actor: actorFromContext(c)}

	if c.Context().QueryArgs().Has("prior_hours") {
		raw := make(map[string]string)
		for _, pair := range strings.Split(c.Query("prior_hours"), ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, value, ok := strings.Cut(pair, ":")
			if !ok {
				return 0, service.ComplianceQuery{}, fmt.Errorf("prior_hours entries must be bucket:hours")
			}
			raw[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		override, err := dto.PriorHoursOverride(raw)
		if err != nil {
			return 0, service.ComplianceQuery{}, err
		}
		query.PriorHoursOverride = override
	}

	return traineeID, query, nil
}
