package logbook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/models"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func sampleLogbook(status models.LogbookStatus) models.Logbook {
	supervisor := uint(20)
	sections := make([]models.LogbookSection, 0, len(compliance.Sections))
	for i, kind := range compliance.Sections {
		sections = append(sections, models.LogbookSection{ID: uint(i + 1), LogbookID: 5, Kind: kind, IsLocked: LocksSections(status)})
	}
	return models.Logbook{
		ID:           5,
		TraineeID:    1,
		WeekStart:    time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		SupervisorID: &supervisor,
		Status:       status,
		Sections:     sections,
	}
}

func participants() Participants {
	return Participants{OwnerUserID: 10, Supervisors: []uint{20, 21}}
}

var (
	owner      = Actor{ID: 10, Role: RoleTrainee}
	supervisor = Actor{ID: 20, Role: RoleSupervisor}
)

func TestTransitionTableIsClosed(t *testing.T) {
	allowed := map[models.LogbookStatus][]models.LogbookStatus{
		models.LogbookStatusDraft:            {models.LogbookStatusSubmitted},
		models.LogbookStatusSubmitted:        {models.LogbookStatusUnderReview},
		models.LogbookStatusUnderReview:      {models.LogbookStatusChangesRequested, models.LogbookStatusApproved},
		models.LogbookStatusChangesRequested: {models.LogbookStatusSubmitted},
		models.LogbookStatusApproved:         {models.LogbookStatusEditRequested},
		models.LogbookStatusEditRequested:    {models.LogbookStatusUnlocked},
		models.LogbookStatusUnlocked:         {models.LogbookStatusSubmitted},
		models.LogbookStatusLocked:           {},
	}

	machine := NewMachine(func() time.Time { return fixedNow })
	for _, from := range models.LogbookStatuses {
		require.ElementsMatch(t, allowed[from], NextStatuses(from), "from %s", from)
		for _, to := range models.LogbookStatuses {
			_, err := machine.Apply(sampleLogbook(from), to)
			if CanTransition(from, to) {
				require.NoError(t, err)
				continue
			}
			var invalid *InvalidTransitionError
			require.True(t, errors.As(err, &invalid), "%s -> %s should be rejected", from, to)
			require.Equal(t, from, invalid.From)
			require.Equal(t, to, invalid.To)
		}
	}
	require.True(t, IsTerminal(models.LogbookStatusLocked))
	require.False(t, IsTerminal(models.LogbookStatusApproved))

	lb := sampleLogbook(models.LogbookStatusApproved)
	unchanged, err := machine.Apply(lb, models.LogbookStatusLocked)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, lb, unchanged)
	require.ErrorIs(t, machine.Validate(context.Background(), lb, models.LogbookStatusLocked, supervisor, participants()), ErrInvalidTransition)
}

func TestLockedStatusSet(t *testing.T) {
	locked := map[models.LogbookStatus]bool{
		models.LogbookStatusSubmitted:   true,
		models.LogbookStatusUnderReview: true,
		models.LogbookStatusApproved:    true,
		models.LogbookStatusLocked:      true,
	}
	for _, status := range models.LogbookStatuses {
		require.Equal(t, locked[status], LocksSections(status), status)
	}
}

func TestApplyKeepsLocksConsistentWithStatus(t *testing.T) {
	machine := NewMachine(func() time.Time { return fixedNow })
	for _, from := range models.LogbookStatuses {
		for _, to := range NextStatuses(from) {
			next, err := machine.Apply(sampleLogbook(from), to)
			require.NoError(t, err)
			require.Equal(t, to, next.Status)
			locked := to == models.LogbookStatusSubmitted || to == models.LogbookStatusUnderReview || to == models.LogbookStatusApproved
			for _, section := range next.Sections {
				require.Equal(t, locked, section.IsLocked, "%s -> %s section %s", from, to, section.Kind)
			}
		}
	}

	editRequested, err := machine.Apply(sampleLogbook(models.LogbookStatusApproved), models.LogbookStatusEditRequested)
	require.NoError(t, err)
	require.NotNil(t, editRequested.EditRequestedAt)
	for _, section := range editRequested.Sections {
		require.False(t, section.IsLocked, section.Kind)
		require.Nil(t, section.LockedAt)
	}
}

func TestCloseLocksApprovedLogbook(t *testing.T) {
	machine := NewMachine(func() time.Time { return fixedNow })
	ctx := context.Background()

	approved := sampleLogbook(models.LogbookStatusApproved)
	require.NoError(t, machine.ValidateClose(ctx, approved, supervisor, participants()))
	require.ErrorIs(t, machine.ValidateClose(ctx, approved, owner, participants()), ErrUnauthorizedActor)
	require.ErrorIs(t, machine.ValidateClose(ctx, approved, Actor{ID: 21, Role: RoleSupervisor}, participants()), ErrUnauthorizedActor)

	closed, err := machine.Close(approved)
	require.NoError(t, err)
	require.Equal(t, models.LogbookStatusLocked, closed.Status)
	require.NotNil(t, closed.LockedAt)
	require.Equal(t, fixedNow, *closed.LockedAt)
	for _, section := range closed.Sections {
		require.True(t, section.IsLocked)
	}
	require.Equal(t, models.LogbookStatusApproved, approved.Status)

	for _, status := range models.LogbookStatuses {
		if status == models.LogbookStatusApproved {
			continue
		}
		lb := sampleLogbook(status)
		_, err := machine.Close(lb)
		var invalid *InvalidTransitionError
		require.True(t, errors.As(err, &invalid), status)
		require.Equal(t, models.LogbookStatusLocked, invalid.To)
		require.ErrorIs(t, machine.ValidateClose(ctx, lb, supervisor, participants()), ErrInvalidTransition)
	}
}

func TestApplyStampsAndDoesNotMutateInput(t *testing.T) {
	machine := NewMachine(func() time.Time { return fixedNow })
	lb := sampleLogbook(models.LogbookStatusDraft)

	next, err := machine.Apply(lb, models.LogbookStatusSubmitted)
	require.NoError(t, err)
	require.NotNil(t, next.SubmittedAt)
	require.Equal(t, fixedNow, *next.SubmittedAt)
	require.NotNil(t, next.Sections[0].LockedAt)

	require.Equal(t, models.LogbookStatusDraft, lb.Status)
	require.Nil(t, lb.SubmittedAt)
	require.False(t, lb.Sections[0].IsLocked)

	unlocked, err := machine.Apply(sampleLogbook(models.LogbookStatusEditRequested), models.LogbookStatusUnlocked)
	require.NoError(t, err)
	require.NotNil(t, unlocked.UnlockedAt)
	for _, section := range unlocked.Sections {
		require.False(t, section.IsLocked)
		require.Nil(t, section.LockedAt)
	}
}

func TestAuthorizeOwnerAndSupervisor(t *testing.T) {
	cases := []struct {
		name  string
		from  models.LogbookStatus
		to    models.LogbookStatus
		actor Actor
		ok    bool
	}{
		{"owner submits draft", models.LogbookStatusDraft, models.LogbookStatusSubmitted, owner, true},
		{"supervisor cannot submit", models.LogbookStatusDraft, models.LogbookStatusSubmitted, supervisor, false},
		{"other trainee cannot submit", models.LogbookStatusDraft, models.LogbookStatusSubmitted, Actor{ID: 11, Role: RoleTrainee}, false},
		{"assigned supervisor starts review", models.LogbookStatusSubmitted, models.LogbookStatusUnderReview, supervisor, true},
		{"owner cannot approve", models.LogbookStatusUnderReview, models.LogbookStatusApproved, owner, false},
		{"unassigned supervisor cannot approve", models.LogbookStatusUnderReview, models.LogbookStatusApproved, Actor{ID: 30, Role: RoleSupervisor}, false},
		{"accepted but not named supervisor cannot approve", models.LogbookStatusUnderReview, models.LogbookStatusApproved, Actor{ID: 21, Role: RoleSupervisor}, false},
		{"admin cannot approve", models.LogbookStatusUnderReview, models.LogbookStatusApproved, Actor{ID: 20, Role: RoleAdmin}, false},
		{"owner requests edit", models.LogbookStatusApproved, models.LogbookStatusEditRequested, owner, true},
		{"supervisor grants unlock", models.LogbookStatusEditRequested, models.LogbookStatusUnlocked, supervisor, true},
		{"owner resubmits after unlock", models.LogbookStatusUnlocked, models.LogbookStatusSubmitted, owner, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(sampleLogbook(tc.from), tc.to, tc.actor, participants())
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrUnauthorizedActor)
		})
	}
}

func TestAuthorizeWithoutNamedSupervisor(t *testing.T) {
	lb := sampleLogbook(models.LogbookStatusSubmitted)
	lb.SupervisorID = nil

	require.NoError(t, Authorize(lb, models.LogbookStatusUnderReview, Actor{ID: 21, Role: RoleSupervisor}, participants()))
	require.ErrorIs(t, Authorize(lb, models.LogbookStatusUnderReview, Actor{ID: 99, Role: RoleSupervisor}, participants()), ErrUnauthorizedActor)
}

func TestValidateRunsGuardsForDestination(t *testing.T) {
	machine := NewMachine(func() time.Time { return fixedNow })
	calls := 0
	machine.Guard(models.LogbookStatusSubmitted, GuardFunc(func(_ context.Context, lb models.Logbook, to models.LogbookStatus) ([]string, error) {
		calls++
		if lb.TotalMinutes() == 0 {
			return []string{"logbook has no entries"}, nil
		}
		return nil, nil
	}))

	err := machine.Validate(context.Background(), sampleLogbook(models.LogbookStatusDraft), models.LogbookStatusSubmitted, owner, participants())
	var notEligible *NotEligibleError
	require.True(t, errors.As(err, &notEligible))
	require.Equal(t, []string{"logbook has no entries"}, notEligible.Reasons)
	require.ErrorIs(t, err, ErrNotEligible)

	unlocked := sampleLogbook(models.LogbookStatusUnlocked)
	unlocked.PracticeMinutes = 60
	require.NoError(t, machine.Validate(context.Background(), unlocked, models.LogbookStatusSubmitted, owner, participants()))
	require.Equal(t, 2, calls)

	require.NoError(t, machine.Validate(context.Background(), sampleLogbook(models.LogbookStatusSubmitted), models.LogbookStatusUnderReview, supervisor, participants()))
	require.Equal(t, 2, calls)
}

func TestValidateChecksTableBeforeGuards(t *testing.T) {
	machine := NewMachine(nil)
	machine.Guard(models.LogbookStatusApproved, GuardFunc(func(context.Context, models.Logbook, models.LogbookStatus) ([]string, error) {
		t.Fatal("guard should not run for an invalid move")
		return nil, nil
	}))

	err := machine.Validate(context.Background(), sampleLogbook(models.LogbookStatusDraft), models.LogbookStatusApproved, supervisor, participants())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidatePropagatesGuardErrors(t *testing.T) {
	boom := errors.New("compliance unavailable")
	machine := NewMachine(nil)
	machine.Guard(models.LogbookStatusLocked, GuardFunc(func(context.Context, models.Logbook, models.LogbookStatus) ([]string, error) {
		return nil, boom
	}))

	err := machine.ValidateClose(context.Background(), sampleLogbook(models.LogbookStatusApproved), supervisor, participants())
	require.ErrorIs(t, err, boom)
}

func TestValidateRunsPerCallGuards(t *testing.T) {
	machine := NewMachine(nil)
	machine.Guard(models.LogbookStatusSubmitted, GuardFunc(func(context.Context, models.Logbook, models.LogbookStatus) ([]string, error) {
		return []string{"registered"}, nil
	}))
	perCall := GuardFunc(func(context.Context, models.Logbook, models.LogbookStatus) ([]string, error) {
		return []string{"per call"}, nil
	})

	err := machine.Validate(context.Background(), sampleLogbook(models.LogbookStatusDraft), models.LogbookStatusSubmitted, owner, participants(), perCall)
	var notEligible *NotEligibleError
	require.True(t, errors.As(err, &notEligible))
	require.Equal(t, []string{"registered", "per call"}, notEligible.Reasons)

	err = machine.Validate(context.Background(), sampleLogbook(models.LogbookStatusDraft), models.LogbookStatusSubmitted, owner, participants())
	require.True(t, errors.As(err, &notEligible))
	require.Equal(t, []string{"registered"}, notEligible.Reasons)
}

func TestCloneKeepsGuardsSeparate(t *testing.T) {
	shared := NewMachine(nil)
	clone := shared.Clone()
	clone.Guard(models.LogbookStatusSubmitted, GuardFunc(func(context.Context, models.Logbook, models.LogbookStatus) ([]string, error) {
		return []string{"clone only"}, nil
	}))

	lb := sampleLogbook(models.LogbookStatusDraft)
	require.NoError(t, shared.Validate(context.Background(), lb, models.LogbookStatusSubmitted, owner, participants()))
	require.ErrorIs(t, clone.Validate(context.Background(), lb, models.LogbookStatusSubmitted, owner, participants()), ErrNotEligible)
}

func TestAuditForDescribesTransition(t *testing.T) {
	machine := NewMachine(func() time.Time { return fixedNow })
	before := sampleLogbook(models.LogbookStatusUnderReview)
	after, err := machine.Apply(before, models.LogbookStatusApproved)
	require.NoError(t, err)

	entry := AuditFor(before, after, supervisor, "looks good")
	require.Equal(t, "under_review", entry.FromStatus)
	require.Equal(t, "approved", entry.ToStatus)
	require.Equal(t, models.AuditActionTransition, entry.Action)
	require.NotNil(t, entry.ActorID)
	require.Equal(t, uint(20), *entry.ActorID)
	require.Equal(t, uint(5), *entry.LogbookID)
	require.Equal(t, fixedNow, entry.CreatedAt)
	require.Equal(t, true, entry.DiffSnapshot["sections_locked"])
}

func TestCanRequestPredicate(t *testing.T) {
	lb := sampleLogbook(models.LogbookStatusApproved)

	authority, ok := AllowedActor(lb, models.LogbookStatusEditRequested)
	require.True(t, ok)
	require.Equal(t, AuthorityOwner, authority)
	require.True(t, CanRequest(lb, models.LogbookStatusEditRequested, owner, participants()))
	require.False(t, CanRequest(lb, models.LogbookStatusEditRequested, supervisor, participants()))

	_, ok = AllowedActor(lb, models.LogbookStatusDraft)
	require.False(t, ok)
	require.False(t, CanRequest(lb, models.LogbookStatusDraft, owner, participants()))
}
