package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/praxis-api/internal/dto"
	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/models"
)

func TestEntryServiceCreatesDraftLogbookForWeek(t *testing.T) {
	f := newServiceFixture(t, fixtureOptions{})
	ctx := context.Background()

	resp, err := f.entries.RecordPractice(ctx, traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-04",
		DurationMinutes: 90,
		ActivityType:    "client_contact",
		Description:     "<b>Intake</b> session",
	})
	require.NoError(t, err)
	require.Equal(t, "practice", resp.Section)
	require.Equal(t, "2025-06-02", resp.Logbook.WeekStart)
	require.Equal(t, string(models.LogbookStatusDraft), resp.Logbook.Status)
	require.Equal(t, int64(90), resp.Logbook.TotalMinutes)
	require.NotNil(t, resp.Logbook.SupervisorID)
	require.Equal(t, supervisorUserID, *resp.Logbook.SupervisorID)

	second, err := f.entries.RecordProfessionalDevelopment(ctx, traineeActor, dto.ProfessionalDevelopmentEntryRequest{
		ActivityDate:    "2025-06-08",
		DurationMinutes: 60,
		Title:           "Ethics workshop",
	})
	require.NoError(t, err)
	require.Equal(t, resp.Logbook.ID, second.Logbook.ID)
	require.Equal(t, int64(150), second.Logbook.TotalMinutes)

	var stored models.PracticeEntry
	require.NoError(t, f.db.First(&stored, resp.ID).Error)
	require.Equal(t, "Intake session", stored.Description)
	require.False(t, stored.Approved)

	var pd models.ProfessionalDevelopmentEntry
	require.NoError(t, f.db.First(&pd, second.ID).Error)
	require.True(t, pd.CPD)

	require.Len(t, f.events.entries, 2)
	require.Equal(t, "professional_development", f.events.entries[1].Section)
}

func TestEntryServiceRejectsNonTraineeActors(t *testing.T) {
	f := newServiceFixture(t, fixtureOptions{})

	_, err := f.entries.RecordPractice(context.Background(), supervisorActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-04",
		DurationMinutes: 60,
		ActivityType:    "client_contact",
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.entries.RecordPractice(context.Background(), logbook.Actor{ID: 99, Role: logbook.RoleTrainee}, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-04",
		DurationMinutes: 60,
		ActivityType:    "client_contact",
	})
	require.ErrorIs(t, err, ErrTraineeNotFound)
}

func TestEntryServiceValidatesRequests(t *testing.T) {
	f := newServiceFixture(t, fixtureOptions{})

	_, err := f.entries.RecordPractice(context.Background(), traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "04/06/2025",
		DurationMinutes: 0,
		ActivityType:    "napping",
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.PracticeEntry{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEntryServiceEnforcesSimulatedLimit(t *testing.T) {
	f := newServiceFixture(t, fixtureOptions{})
	ctx := context.Background()
	f.seedEntry(t, &models.PracticeEntry{TraineeID: f.trainee.ID, LogbookID: 1, SessionDate: day(2025, time.March, 3), DurationMinutes: 55 * 60, ActivityType: "client_contact", Simulated: true})

	_, err := f.entries.RecordPractice(ctx, traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-04",
		DurationMinutes: 600,
		ActivityType:    "client_contact",
		Simulated:       true,
	})
	require.ErrorIs(t, err, ErrSimulatedLimitExceeded)

	var limitErr *SimulatedLimitError
	require.ErrorAs(t, err, &limitErr)
	require.True(t, decimal.NewFromInt(5).Equal(limitErr.Check.Excess))

	_, err = f.entries.RecordPractice(ctx, traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-04",
		DurationMinutes: 300,
		ActivityType:    "client_contact",
		Simulated:       true,
	})
	require.NoError(t, err)

	_, err = f.entries.RecordPractice(ctx, traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-05",
		DurationMinutes: 600,
		ActivityType:    "client_contact",
	})
	require.NoError(t, err)
}

func TestEntryServiceSupervisionRequiresAcceptedSupervisor(t *testing.T) {
	f := newServiceFixture(t, fixtureOptions{})
	ctx := context.Background()

	require.NoError(t, f.trainees.CreateAssignment(ctx, &models.SupervisorAssignment{
		TraineeID:    f.trainee.ID,
		SupervisorID: 30,
		Role:         models.SupervisorRoleSecondary,
	}))

	_, err := f.entries.RecordSupervision(ctx, traineeActor, dto.SupervisionEntryRequest{
		SessionDate:     "2025-06-03",
		DurationMinutes: 60,
		SupervisorID:    30,
		Mode:            "individual",
	})
	require.ErrorIs(t, err, ErrSupervisorNotAssigned)

	direct := false
	resp, err := f.entries.RecordSupervision(ctx, traineeActor, dto.SupervisionEntryRequest{
		SessionDate:     "2025-06-03",
		DurationMinutes: 60,
		SupervisorID:    supervisorUserID,
		Mode:            "group",
		Direct:          &direct,
	})
	require.NoError(t, err)

	var stored models.SupervisionEntry
	require.NoError(t, f.db.First(&stored, resp.ID).Error)
	require.True(t, stored.Principal)
	require.False(t, stored.Direct)
	require.Equal(t, "in_person", stored.Format)
}

func TestEntryServiceRejectsEntriesIntoLockedSections(t *testing.T) {
	f := newServiceFixture(t, fixtureOptions{})
	ctx := context.Background()
	id := recordCompleteWeek(t, f, "2025-06-02")

	_, err := f.logbooks.Transition(ctx, traineeActor, id, dto.TransitionRequest{To: "submitted"})
	require.NoError(t, err)

	_, err = f.entries.RecordPractice(ctx, traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-06",
		DurationMinutes: 60,
		ActivityType:    "client_contact",
	})
	require.ErrorIs(t, err, ErrSectionLocked)

	_, err = f.entries.RecordPractice(ctx, traineeActor, dto.PracticeEntryRequest{
		SessionDate:     "2025-06-10",
		DurationMinutes: 60,
		ActivityType:    "client_contact",
	})
	require.NoError(t, err)
}

func TestWeekStart(t *testing.T) {
	cases := map[string]struct {
		in   time.Time
		want time.Time
	}{
		"monday":        {in: day(2025, time.June, 2), want: day(2025, time.June, 2)},
		"sunday":        {in: day(2025, time.June, 8), want: day(2025, time.June, 2)},
		"midweek":       {in: time.Date(2025, time.June, 4, 18, 30, 0, 0, time.UTC), want: day(2025, time.June, 2)},
		"offset to utc": {in: time.Date(2025, time.June, 9, 1, 0, 0, 0, time.FixedZone("AEST", 10*3600)), want: day(2025, time.June, 2)},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.True(t, tc.want.Equal(WeekStart(tc.in)), "got %s", WeekStart(tc.in))
		})
	}
}
