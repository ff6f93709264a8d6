package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/models"
	"github.com/noah-isme/praxis-api/internal/repository"
)

const (
	traineeUserID    = uint(10)
	supervisorUserID = uint(20)
)

var (
	traineeActor    = logbook.Actor{ID: traineeUserID, Role: logbook.RoleTrainee}
	supervisorActor = logbook.Actor{ID: supervisorUserID, Role: logbook.RoleSupervisor}
)

type recordingPublisher struct {
	mu          sync.Mutex
	transitions []LogbookTransitionedEvent
	entries     []EntryRecordedEvent
}

func (p *recordingPublisher) LogbookTransitioned(_ context.Context, event LogbookTransitionedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, event)
	return nil
}

func (p *recordingPublisher) EntryRecorded(_ context.Context, event EntryRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, event)
	return nil
}

type serviceFixture struct {
	db         *gorm.DB
	trainee    models.Trainee
	trainees   repository.TraineeRepository
	entryRepo  repository.EntryRepository
	logbookRep repository.LogbookRepository
	audits     repository.AuditRepository
	comments   repository.CommentRepository
	events     *recordingPublisher
	compliance ComplianceService
	entries    EntryService
	logbooks   LogbookService
}

type fixtureOptions struct {
	cache       *redis.Client
	eligibility logbook.Guard
}

func newServiceFixture(t *testing.T, opts fixtureOptions) *serviceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Trainee{},
		&models.SupervisorAssignment{},
		&models.Logbook{},
		&models.LogbookSection{},
		&models.PracticeEntry{},
		&models.ProfessionalDevelopmentEntry{},
		&models.SupervisionEntry{},
		&models.AuditEntry{},
		&models.Comment{},
	))

	f := &serviceFixture{
		db:         db,
		trainees:   repository.NewTraineeRepository(db),
		entryRepo:  repository.NewEntryRepository(db),
		logbookRep: repository.NewLogbookRepository(db),
		audits:     repository.NewAuditRepository(db),
		comments:   repository.NewCommentRepository(db),
		events:     &recordingPublisher{},
	}

	f.trainee = models.Trainee{
		UserID:      traineeUserID,
		Name:        "Ana Reyes",
		Email:       "ana@example.com",
		ProgramType: string(compliance.ProgramFivePlusOne),
		Track:       string(compliance.TrackGeneral),
		StartDate:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.trainees.Create(context.Background(), &f.trainee))
	require.NoError(t, f.trainees.CreateAssignment(context.Background(), &models.SupervisorAssignment{
		TraineeID:    f.trainee.ID,
		SupervisorID: supervisorUserID,
		Role:         models.SupervisorRolePrincipal,
		Accepted:     true,
	}))

	validate := validator.New()
	f.compliance = NewComplianceService(f.trainees, f.entryRepo, f.audits, compliance.DefaultCatalog(), ComplianceServiceConfig{
		Cache:    opts.cache,
		CacheTTL: time.Minute,
	}, zerolog.Nop())
	f.entries = NewEntryService(f.trainees, f.entryRepo, f.compliance, f.events, validate, zerolog.Nop())
	f.logbooks = NewLogbookService(f.logbookRep, f.entryRepo, f.trainees, f.audits, f.comments, validate, LogbookServiceConfig{
		Eligibility: opts.eligibility,
		Compliance:  f.compliance,
		Events:      f.events,
	}, zerolog.Nop())
	return f
}

// seedEntry writes an entry straight to the database, bypassing the workflow.
func (f *serviceFixture) seedEntry(t *testing.T, entry interface{}) {
	t.Helper()
	require.NoError(t, f.db.Create(entry).Error)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
