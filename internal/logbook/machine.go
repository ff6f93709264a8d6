package logbook

import (
	"context"
	"time"

	"github.com/noah-isme/praxis-api/internal/models"
)

// Guard inspects a logbook before a transition and returns the reasons it
// must not proceed. An empty slice allows the move.
type Guard interface {
	Check(ctx context.Context, lb models.Logbook, to models.LogbookStatus) ([]string, error)
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ctx context.Context, lb models.Logbook, to models.LogbookStatus) ([]string, error)

// Check calls f.
func (f GuardFunc) Check(ctx context.Context, lb models.Logbook, to models.LogbookStatus) ([]string, error) {
	return f(ctx, lb, to)
}

// Machine applies review transitions to logbooks.
type Machine struct {
	guards map[models.LogbookStatus][]Guard
	now    func() time.Time
}

// NewMachine builds a machine using now as its clock.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{guards: make(map[models.LogbookStatus][]Guard), now: now}
}

// Guard registers g to run before every transition into status.
func (m *Machine) Guard(status models.LogbookStatus, g Guard) {
	m.guards[status] = append(m.guards[status], g)
}

// Clone returns a machine sharing the clock with its own copy of the
// registered guards.
func (m *Machine) Clone() *Machine {
	guards := make(map[models.LogbookStatus][]Guard, len(m.guards))
	for status, registered := range m.guards {
		guards[status] = append([]Guard(nil), registered...)
	}
	return &Machine{guards: guards, now: m.now}
}

// Validate runs the table, authorization and guard checks for lb -> to
// without changing anything. Extra guards run after the registered ones for
// this call only.
func (m *Machine) Validate(ctx context.Context, lb models.Logbook, to models.LogbookStatus, actor Actor, p Participants, extra ...Guard) error {
	if !CanTransition(lb.Status, to) {
		return &InvalidTransitionError{From: lb.Status, To: to}
	}
	if err := Authorize(lb, to, actor, p); err != nil {
		return err
	}
	return m.check(ctx, lb, to, extra)
}

// ValidateClose checks that lb is approved, that actor supervises it and
// that the guards registered for locked pass.
func (m *Machine) ValidateClose(ctx context.Context, lb models.Logbook, actor Actor, p Participants, extra ...Guard) error {
	if !CanClose(lb.Status) {
		return &InvalidTransitionError{From: lb.Status, To: closeEdge.to}
	}
	if err := AuthorizeClose(lb, actor, p); err != nil {
		return err
	}
	return m.check(ctx, lb, closeEdge.to, extra)
}

func (m *Machine) check(ctx context.Context, lb models.Logbook, to models.LogbookStatus, extra []Guard) error {
	var reasons []string
	guards := append(append([]Guard(nil), m.guards[to]...), extra...)
	for _, g := range guards {
		found, err := g.Check(ctx, lb, to)
		if err != nil {
			return err
		}
		reasons = append(reasons, found...)
	}
	if len(reasons) > 0 {
		return &NotEligibleError{To: to, Reasons: reasons}
	}
	return nil
}

// Apply returns a copy of lb moved to status to. Timestamps for the new
// status are stamped and section locks follow the destination status. The
// input is never modified.
func (m *Machine) Apply(lb models.Logbook, to models.LogbookStatus) (models.Logbook, error) {
	if !CanTransition(lb.Status, to) {
		return lb, &InvalidTransitionError{From: lb.Status, To: to}
	}
	return m.move(lb, to), nil
}

// Close returns a copy of an approved lb moved to locked.
func (m *Machine) Close(lb models.Logbook) (models.Logbook, error) {
	if !CanClose(lb.Status) {
		return lb, &InvalidTransitionError{From: lb.Status, To: closeEdge.to}
	}
	return m.move(lb, closeEdge.to), nil
}

func (m *Machine) move(lb models.Logbook, to models.LogbookStatus) models.Logbook {
	now := m.now().UTC()
	next := lb
	next.Status = to
	next.UpdatedAt = now

	stamp := &now
	switch to {
	case models.LogbookStatusSubmitted:
		next.SubmittedAt = stamp
	case models.LogbookStatusUnderReview:
		next.ReviewStartedAt = stamp
	case models.LogbookStatusChangesRequested:
		next.ChangesRequestedAt = stamp
	case models.LogbookStatusApproved:
		next.ApprovedAt = stamp
	case models.LogbookStatusEditRequested:
		next.EditRequestedAt = stamp
	case models.LogbookStatusUnlocked:
		next.UnlockedAt = stamp
	case models.LogbookStatusLocked:
		next.LockedAt = stamp
	}

	locked := LocksSections(to)
	next.Sections = make([]models.LogbookSection, len(lb.Sections))
	for i, section := range lb.Sections {
		if section.IsLocked != locked {
			section.IsLocked = locked
			section.UpdatedAt = now
			if locked {
				section.LockedAt = stamp
			} else {
				section.LockedAt = nil
			}
		}
		next.Sections[i] = section
	}
	return next
}

// AuditFor builds the audit record describing a completed transition.
func AuditFor(before, after models.Logbook, actor Actor, note string) models.AuditEntry {
	logbookID := after.ID
	entry := models.AuditEntry{
		TraineeID:   after.TraineeID,
		LogbookID:   &logbookID,
		ActorRole:   actor.Role,
		Action:      models.AuditActionTransition,
		FromStatus:  string(before.Status),
		ToStatus:    string(after.Status),
		Description: note,
		DiffSnapshot: map[string]interface{}{
			"status": map[string]interface{}{
				"from": string(before.Status),
				"to":   string(after.Status),
			},
			"sections_locked":                  LocksSections(after.Status),
			"practice_minutes":                 after.PracticeMinutes,
			"professional_development_minutes": after.ProfessionalDevelopmentMinutes,
			"supervision_minutes":              after.SupervisionMinutes,
			"week_start":                       after.WeekStart.Format("2006-01-02"),
		},
		CreatedAt: after.UpdatedAt,
	}
	if actor.ID != 0 {
		actorID := actor.ID
		entry.ActorID = &actorID
	}
	return entry
}
