package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/models"
	"github.com/noah-isme/praxis-api/internal/repository"
)

// EntryService records activity entries into weekly logbooks.
type EntryService interface {
	RecordPractice(ctx context.Context, actor logbook.Actor, req dto.PracticeEntryRequest) (dto.EntryResponse, error)
	RecordProfessionalDevelopment(ctx context.Context, actor logbook.Actor, req dto.ProfessionalDevelopmentEntryRequest) (dto.EntryResponse, error)
	RecordSupervision(ctx context.Context, actor logbook.Actor, req dto.SupervisionEntryRequest) (dto.EntryResponse, error)
}

type entryService struct {
	trainees   repository.TraineeRepository
	entries    repository.EntryRepository
	compliance ComplianceService
	events     EventPublisher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEntryService wires the entry recording service.
func NewEntryService(trainees repository.TraineeRepository, entries repository.EntryRepository, complianceSvc ComplianceService, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) EntryService {
	return &entryService{
		trainees:   trainees,
		entries:    entries,
		compliance: complianceSvc,
		events:     events,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "entry_service").Logger(),
		now:        time.Now,
	}
}

func (s *entryService) RecordPractice(ctx context.Context, actor logbook.Actor, req dto.PracticeEntryRequest) (dto.EntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EntryResponse{}, err
	}
	date, err := dto.ParseDate(req.SessionDate)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	trainee, supervisors, err := s.owner(ctx, actor)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	if req.Simulated && s.compliance != nil {
		check, err := s.compliance.SimulatedCheck(ctx, trainee.ID, req.DurationMinutes)
		if err != nil {
			return dto.EntryResponse{}, err
		}
		if !check.Passed {
			return dto.EntryResponse{}, &SimulatedLimitError{Check: check}
		}
	}

	entry := models.PracticeEntry{
		TraineeID:       trainee.ID,
		SessionDate:     date,
		DurationMinutes: req.DurationMinutes,
		ActivityType:    req.ActivityType,
		Simulated:       req.Simulated,
		ObservationType: req.ObservationType,
		Description:     s.sanitizer.Sanitize(req.Description),
	}
	lb, err := s.record(ctx, trainee, supervisors, date, compliance.SectionPractice, &entry)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	s.published(ctx, EntryRecordedEvent{
		EntryID:   entry.ID,
		LogbookID: lb.ID,
		TraineeID: trainee.ID,
		Section:   string(compliance.SectionPractice),
		Minutes:   entry.DurationMinutes,
		Simulated: entry.Simulated,
	})
	return dto.NewPracticeEntryResponse(entry, dto.NewLogbookResponse(lb, logbook.NextStatuses(lb.Status))), nil
}

func (s *entryService) RecordProfessionalDevelopment(ctx context.Context, actor logbook.Actor, req dto.ProfessionalDevelopmentEntryRequest) (dto.EntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EntryResponse{}, err
	}
	date, err := dto.ParseDate(req.ActivityDate)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	trainee, supervisors, err := s.owner(ctx, actor)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	cpd := true
	if req.CPD != nil {
		cpd = *req.CPD
	}
	entry := models.ProfessionalDevelopmentEntry{
		TraineeID:       trainee.ID,
		ActivityDate:    date,
		DurationMinutes: req.DurationMinutes,
		Title:           s.sanitizer.Sanitize(req.Title),
		Provider:        s.sanitizer.Sanitize(req.Provider),
		CPD:             cpd,
		Active:          req.Active,
	}
	lb, err := s.record(ctx, trainee, supervisors, date, compliance.SectionProfessionalDevelopment, &entry)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	s.published(ctx, EntryRecordedEvent{
		EntryID:   entry.ID,
		LogbookID: lb.ID,
		TraineeID: trainee.ID,
		Section:   string(compliance.SectionProfessionalDevelopment),
		Minutes:   entry.DurationMinutes,
	})
	return dto.NewProfessionalDevelopmentEntryResponse(entry, dto.NewLogbookResponse(lb, logbook.NextStatuses(lb.Status))), nil
}

func (s *entryService) RecordSupervision(ctx context.Context, actor logbook.Actor, req dto.SupervisionEntryRequest) (dto.EntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EntryResponse{}, err
	}
	date, err := dto.ParseDate(req.SessionDate)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	trainee, supervisors, err := s.owner(ctx, actor)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	assignment, ok := findAssignment(supervisors, req.SupervisorID)
	if !ok {
		return dto.EntryResponse{}, ErrSupervisorNotAssigned
	}

	format := req.Format
	if format == "" {
		format = string(compliance.FormatInPerson)
	}
	direct := true
	if req.Direct != nil {
		direct = *req.Direct
	}
	entry := models.SupervisionEntry{
		TraineeID:       trainee.ID,
		SupervisorID:    req.SupervisorID,
		SessionDate:     date,
		DurationMinutes: req.DurationMinutes,
		Mode:            req.Mode,
		Format:          format,
		Direct:          direct,
		Principal:       assignment.Role == models.SupervisorRolePrincipal,
		Cultural:        req.Cultural,
		Summary:         s.sanitizer.Sanitize(req.Summary),
	}
	lb, err := s.record(ctx, trainee, supervisors, date, compliance.SectionSupervision, &entry)
	if err != nil {
		return dto.EntryResponse{}, err
	}

	s.published(ctx, EntryRecordedEvent{
		EntryID:   entry.ID,
		LogbookID: lb.ID,
		TraineeID: trainee.ID,
		Section:   string(compliance.SectionSupervision),
		Minutes:   entry.DurationMinutes,
	})
	return dto.NewSupervisionEntryResponse(entry, dto.NewLogbookResponse(lb, logbook.NextStatuses(lb.Status))), nil
}

// owner resolves the trainee record of the acting user.
func (s *entryService) owner(ctx context.Context, actor logbook.Actor) (models.Trainee, []models.SupervisorAssignment, error) {
	if actor.Role != logbook.RoleTrainee || actor.ID == 0 {
		return models.Trainee{}, nil, ErrForbidden
	}

	trainee, err := s.trainees.GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trainee{}, nil, ErrTraineeNotFound
		}
		return models.Trainee{}, nil, err
	}

	supervisors, err := s.trainees.AcceptedSupervisors(ctx, trainee.ID)
	if err != nil {
		return models.Trainee{}, nil, err
	}
	return trainee, supervisors, nil
}

func (s *entryService) record(ctx context.Context, trainee models.Trainee, supervisors []models.SupervisorAssignment, date time.Time, section compliance.Section, entry repository.RecordableEntry) (models.Logbook, error) {
	var supervisorID *uint
	if len(supervisors) > 0 {
		id := supervisors[0].SupervisorID
		supervisorID = &id
	}

	lb, err := s.entries.Record(ctx, repository.RecordRequest{
		TraineeID:    trainee.ID,
		WeekStart:    WeekStart(date),
		Section:      section,
		SupervisorID: supervisorID,
		Entry:        entry,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSectionLocked) {
			return models.Logbook{}, fmt.Errorf("%w: %s", ErrSectionLocked, section)
		}
		return models.Logbook{}, err
	}

	s.logger.Info().
		Uint("trainee_id", trainee.ID).
		Uint("logbook_id", lb.ID).
		Str("section", string(section)).
		Int64("minutes", entry.Minutes()).
		Msg("entry recorded")
	return lb, nil
}

func (s *entryService) published(ctx context.Context, event EntryRecordedEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.events.EntryRecorded(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("entry_id", event.EntryID).Msg("failed to publish entry event")
	}
}

func findAssignment(assignments []models.SupervisorAssignment, supervisorID uint) (models.SupervisorAssignment, bool) {
	for _, assignment := range assignments {
		if assignment.SupervisorID == supervisorID {
			return assignment, true
		}
	}
	return models.SupervisorAssignment{}, false
}

// WeekStart returns the Monday of the week containing t, at midnight UTC.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
