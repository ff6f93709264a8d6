package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/models"
	"github.com/noah-isme/praxis-api/internal/observability"
	"github.com/noah-isme/praxis-api/internal/repository"
)

// LogbookService drives the review workflow of weekly logbooks.
type LogbookService interface {
	Get(ctx context.Context, actor logbook.Actor, id uint) (dto.LogbookResponse, error)
	// Transition moves a logbook along the review table. Eligibility guards
	// passed here replace the configured submission check for this call.
	Transition(ctx context.Context, actor logbook.Actor, id uint, req dto.TransitionRequest, eligibility ...logbook.Guard) (dto.LogbookResponse, error)
	// Close locks an approved logbook for good.
	Close(ctx context.Context, actor logbook.Actor, id uint, req dto.CloseRequest) (dto.LogbookResponse, error)
	ListAudit(ctx context.Context, actor logbook.Actor, id uint, page, pageSize int) (dto.AuditListResponse, error)
	AddComment(ctx context.Context, actor logbook.Actor, id uint, req dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListComments(ctx context.Context, actor logbook.Actor, id uint) ([]dto.CommentResponse, error)
	UpdateComment(ctx context.Context, actor logbook.Actor, id, commentID uint) error
}

// LogbookServiceConfig carries optional collaborators.
type LogbookServiceConfig struct {
	// Eligibility replaces the default submission eligibility predicate.
	Eligibility logbook.Guard
	// Compliance enables the final-week compliance gate on closing.
	Compliance ComplianceService
	Events     EventPublisher
	// Machine is cloned before the service adds its guards.
	Machine *logbook.Machine
}

type logbookService struct {
	logbooks    repository.LogbookRepository
	entries     repository.EntryRepository
	trainees    repository.TraineeRepository
	audits      repository.AuditRepository
	comments    repository.CommentRepository
	machine     *logbook.Machine
	eligibility logbook.Guard
	events      EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewLogbookService wires the logbook workflow service.
func NewLogbookService(logbooks repository.LogbookRepository, entries repository.EntryRepository, trainees repository.TraineeRepository, audits repository.AuditRepository, comments repository.CommentRepository, validate *validator.Validate, cfg LogbookServiceConfig, logger zerolog.Logger) LogbookService {
	s := &logbookService{
		logbooks:  logbooks,
		entries:   entries,
		trainees:  trainees,
		audits:    audits,
		comments:  comments,
		events:    cfg.Events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "logbook_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/praxis-api/internal/service/logbook"),
	}
	if cfg.Machine != nil {
		s.machine = cfg.Machine.Clone()
	} else {
		s.machine = logbook.NewMachine(nil)
	}

	s.eligibility = cfg.Eligibility
	if s.eligibility == nil {
		s.eligibility = logbook.GuardFunc(s.defaultEligibility)
	}
	if cfg.Compliance != nil {
		s.machine.Guard(models.LogbookStatusLocked, complianceGate(cfg.Compliance))
	}
	return s
}

func (s *logbookService) Get(ctx context.Context, actor logbook.Actor, id uint) (dto.LogbookResponse, error) {
	lb, _, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.LogbookResponse{}, err
	}
	return dto.NewLogbookResponse(lb, logbook.NextStatuses(lb.Status)), nil
}

func (s *logbookService) Transition(ctx context.Context, actor logbook.Actor, id uint, req dto.TransitionRequest, eligibility ...logbook.Guard) (dto.LogbookResponse, error) {
	to := models.LogbookStatus(req.To)
	ctx, span := s.tracer.Start(ctx, "logbook.transition", trace.WithAttributes(
		attribute.Int("logbook.id", int(id)),
		attribute.String("logbook.to", req.To),
		attribute.String("actor.role", actor.Role),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.LogbookResponse{}, err
	}

	var guards []logbook.Guard
	if to == models.LogbookStatusSubmitted {
		guards = eligibility
		if len(guards) == 0 {
			guards = []logbook.Guard{s.eligibility}
		}
	}

	return s.move(ctx, span, actor, id, to, req.Note,
		func(lb models.Logbook, participants logbook.Participants) error {
			return s.machine.Validate(ctx, lb, to, actor, participants, guards...)
		},
		func(current models.Logbook) (models.Logbook, error) {
			return s.machine.Apply(current, to)
		},
	)
}

func (s *logbookService) Close(ctx context.Context, actor logbook.Actor, id uint, req dto.CloseRequest) (dto.LogbookResponse, error) {
	ctx, span := s.tracer.Start(ctx, "logbook.close", trace.WithAttributes(
		attribute.Int("logbook.id", int(id)),
		attribute.String("actor.role", actor.Role),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.LogbookResponse{}, err
	}

	return s.move(ctx, span, actor, id, models.LogbookStatusLocked, req.Note,
		func(lb models.Logbook, participants logbook.Participants) error {
			return s.machine.ValidateClose(ctx, lb, actor, participants)
		},
		s.machine.Close,
	)
}

// move validates outside the transaction, then applies the change under the
// repository's compare-and-swap and records the audit entry with it.
func (s *logbookService) move(
	ctx context.Context,
	span trace.Span,
	actor logbook.Actor,
	id uint,
	to models.LogbookStatus,
	rawNote string,
	validate func(models.Logbook, logbook.Participants) error,
	apply func(models.Logbook) (models.Logbook, error),
) (dto.LogbookResponse, error) {
	lb, participants, err := s.load(ctx, actor, id)
	if err != nil {
		span.SetStatus(codes.Error, "logbook_lookup_failed")
		return dto.LogbookResponse{}, err
	}
	from := lb.Status

	if err := validate(lb, participants); err != nil {
		s.countTransition(from, to, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, transitionOutcome(err))
		return dto.LogbookResponse{}, err
	}

	note := strings.TrimSpace(s.sanitizer.Sanitize(rawNote))
	next, err := s.logbooks.Transition(ctx, id, func(current models.Logbook) (models.Logbook, models.AuditEntry, error) {
		if current.Status != from {
			return current, models.AuditEntry{}, &logbook.InvalidTransitionError{From: current.Status, To: to}
		}
		after, err := apply(current)
		if err != nil {
			return current, models.AuditEntry{}, err
		}
		return after, logbook.AuditFor(current, after, actor, note), nil
	})
	if errors.Is(err, repository.ErrStaleLogbook) {
		err = &logbook.InvalidTransitionError{From: from, To: to}
	}
	if err != nil {
		s.countTransition(from, to, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, transitionOutcome(err))
		return dto.LogbookResponse{}, err
	}
	s.countTransition(from, to, nil)

	s.logger.Info().
		Uint("logbook_id", next.ID).
		Uint("trainee_id", next.TraineeID).
		Str("from", string(from)).
		Str("to", string(to)).
		Uint("actor_id", actor.ID).
		Msg("logbook transitioned")

	if s.events != nil {
		event := LogbookTransitionedEvent{
			LogbookID:  next.ID,
			TraineeID:  next.TraineeID,
			From:       string(from),
			To:         string(to),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: next.UpdatedAt,
		}
		if err := s.events.LogbookTransitioned(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("logbook_id", next.ID).Msg("failed to publish transition event")
		}
	}

	return dto.NewLogbookResponse(next, logbook.NextStatuses(next.Status)), nil
}

func (s *logbookService) ListAudit(ctx context.Context, actor logbook.Actor, id uint, page, pageSize int) (dto.AuditListResponse, error) {
	if _, _, err := s.load(ctx, actor, id); err != nil {
		return dto.AuditListResponse{}, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	entries, total, err := s.audits.List(ctx, repository.AuditFilter{LogbookID: &id, Page: page, PageSize: pageSize})
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAuditEntryResponse(entry))
	}

	return dto.AuditListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

func (s *logbookService) AddComment(ctx context.Context, actor logbook.Actor, id uint, req dto.CommentCreateRequest) (dto.CommentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "logbook.comment", trace.WithAttributes(
		attribute.Int("logbook.id", int(id)),
		attribute.String("comment.scope", req.Scope),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.CommentResponse{}, err
	}

	lb, _, err := s.load(ctx, actor, id)
	if err != nil {
		span.SetStatus(codes.Error, "logbook_lookup_failed")
		return dto.CommentResponse{}, err
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(req.Body))
	if body == "" {
		return dto.CommentResponse{}, fmt.Errorf("%w: body is empty after sanitization", ErrInvalidComment)
	}

	if req.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CommentResponse{}, ErrCommentNotFound
			}
			return dto.CommentResponse{}, err
		}
		if parent.LogbookID != lb.ID {
			return dto.CommentResponse{}, fmt.Errorf("%w: parent belongs to another logbook", ErrInvalidComment)
		}
	}

	comment := models.Comment{
		LogbookID:  lb.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Scope:      models.CommentScope(req.Scope),
		EntryID:    req.EntryID,
		ParentID:   req.ParentID,
		Body:       body,
	}
	err = s.comments.CreateWithAudit(ctx, &comment, func(stored models.Comment) models.AuditEntry {
		logbookID := lb.ID
		actorID := actor.ID
		return models.AuditEntry{
			TraineeID:   lb.TraineeID,
			LogbookID:   &logbookID,
			ActorID:     &actorID,
			ActorRole:   actor.Role,
			Action:      models.AuditActionComment,
			Description: fmt.Sprintf("comment %d on %s", stored.ID, stored.Scope),
			DiffSnapshot: map[string]interface{}{
				"comment_id": stored.ID,
				"scope":      string(stored.Scope),
				"status":     string(lb.Status),
			},
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "comment_create_failed")
		return dto.CommentResponse{}, err
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *logbookService) ListComments(ctx context.Context, actor logbook.Actor, id uint) ([]dto.CommentResponse, error) {
	if _, _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByLogbook(ctx, id)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, dto.NewCommentResponse(comment))
	}
	return items, nil
}

// UpdateComment always fails: comments are immutable once posted.
func (s *logbookService) UpdateComment(ctx context.Context, actor logbook.Actor, id, commentID uint) error {
	if _, _, err := s.load(ctx, actor, id); err != nil {
		return err
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.LogbookID != id {
		return ErrCommentNotFound
	}

	s.logger.Warn().Uint("comment_id", commentID).Uint("actor_id", actor.ID).Msg("rejected comment edit")
	return ErrImmutableEditAttempt
}

// load fetches the logbook and its participants and checks the actor may
// see it.
func (s *logbookService) load(ctx context.Context, actor logbook.Actor, id uint) (models.Logbook, logbook.Participants, error) {
	lb, err := s.logbooks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Logbook{}, logbook.Participants{}, ErrLogbookNotFound
		}
		return models.Logbook{}, logbook.Participants{}, err
	}

	participants, err := s.participants(ctx, lb)
	if err != nil {
		return models.Logbook{}, logbook.Participants{}, err
	}

	if !canView(actor, participants) {
		return models.Logbook{}, logbook.Participants{}, ErrForbidden
	}
	return lb, participants, nil
}

func (s *logbookService) participants(ctx context.Context, lb models.Logbook) (logbook.Participants, error) {
	trainee, err := s.trainees.GetByID(ctx, lb.TraineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return logbook.Participants{}, ErrTraineeNotFound
		}
		return logbook.Participants{}, err
	}
	return participantsOf(ctx, s.trainees, trainee)
}

// defaultEligibility requires an entry in every section, an accepted
// supervisor on the logbook and no other closed logbook for the week.
func (s *logbookService) defaultEligibility(ctx context.Context, lb models.Logbook, _ models.LogbookStatus) ([]string, error) {
	var reasons []string

	counts, err := s.entries.CountBySection(ctx, lb.ID)
	if err != nil {
		return nil, err
	}
	for _, section := range compliance.Sections {
		if counts[section] == 0 {
			reasons = append(reasons, fmt.Sprintf("no %s entries recorded for the week", section))
		}
	}

	if lb.SupervisorID == nil {
		reasons = append(reasons, "no supervisor assigned to the logbook")
	} else {
		assignments, err := s.trainees.AcceptedSupervisors(ctx, lb.TraineeID)
		if err != nil {
			return nil, err
		}
		accepted := false
		for _, assignment := range assignments {
			if assignment.SupervisorID == *lb.SupervisorID {
				accepted = true
				break
			}
		}
		if !accepted {
			reasons = append(reasons, "supervisor assignment has not been accepted")
		}
	}

	closed, err := s.logbooks.CountClosedOverlapping(ctx, lb.TraineeID, lb.WeekStart, lb.ID)
	if err != nil {
		return nil, err
	}
	if closed > 0 {
		reasons = append(reasons, "another closed logbook already covers this week")
	}

	return reasons, nil
}

// complianceGate refuses to close a final-week logbook while the trainee's
// merged report has blocking failures.
func complianceGate(svc ComplianceService) logbook.Guard {
	return logbook.GuardFunc(func(ctx context.Context, lb models.Logbook, _ models.LogbookStatus) ([]string, error) {
		if !lb.FinalWeek {
			return nil, nil
		}
		report, err := svc.Report(ctx, lb.TraineeID, ComplianceQuery{})
		if err != nil {
			return nil, fmt.Errorf("compliance gate: %w", err)
		}
		reasons := make([]string, 0, len(report.Failures()))
		for _, failure := range report.Failures() {
			reasons = append(reasons, fmt.Sprintf("%s: %s", failure.RuleID, failure.Message))
		}
		return reasons, nil
	})
}

func (s *logbookService) countTransition(from, to models.LogbookStatus, err error) {
	observability.LogbookTransitions().WithLabelValues(string(from), string(to), transitionOutcome(err)).Inc()
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, logbook.ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, logbook.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, logbook.ErrUnauthorizedActor):
		return "unauthorized"
	default:
		return "error"
	}
}
