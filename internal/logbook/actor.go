package logbook

import "github.com/noah-isme/praxis-api/internal/models"

// Actor roles as carried in access tokens.
const (
	RoleTrainee    = "trainee"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Actor is the authenticated principal requesting a change.
type Actor struct {
	ID   uint
	Role string
}

// Participants describes who is attached to a logbook.
type Participants struct {
	OwnerUserID uint
	// Supervisors holds the user ids of supervisors with an accepted
	// assignment to the owning trainee.
	Supervisors []uint
}

// IsOwner reports whether actor owns the logbook.
func (p Participants) IsOwner(actor Actor) bool {
	return actor.Role == RoleTrainee && actor.ID != 0 && actor.ID == p.OwnerUserID
}

// IsAssignedSupervisor reports whether actor supervises the logbook. When the
// logbook names a supervisor only that supervisor qualifies.
func (p Participants) IsAssignedSupervisor(actor Actor, lb models.Logbook) bool {
	if actor.Role != RoleSupervisor || actor.ID == 0 {
		return false
	}
	accepted := false
	for _, id := range p.Supervisors {
		if id == actor.ID {
			accepted = true
			break
		}
	}
	if !accepted {
		return false
	}
	return lb.SupervisorID == nil || *lb.SupervisorID == actor.ID
}

// Authorize checks that actor holds the authority required for the move.
func Authorize(lb models.Logbook, to models.LogbookStatus, actor Actor, p Participants) error {
	authority, ok := RequiredAuthority(lb.Status, to)
	if !ok {
		return &InvalidTransitionError{From: lb.Status, To: to}
	}

	allowed := false
	switch authority {
	case AuthorityOwner:
		allowed = p.IsOwner(actor)
	case AuthoritySupervisor:
		allowed = p.IsAssignedSupervisor(actor, lb)
	}
	if !allowed {
		return &UnauthorizedActorError{
			ActorID:  actor.ID,
			Role:     actor.Role,
			Required: authority,
			From:     lb.Status,
			To:       to,
		}
	}
	return nil
}

// AuthorizeClose checks that actor is the supervisor who may close lb.
func AuthorizeClose(lb models.Logbook, actor Actor, p Participants) error {
	if p.IsAssignedSupervisor(actor, lb) {
		return nil
	}
	return &UnauthorizedActorError{
		ActorID:  actor.ID,
		Role:     actor.Role,
		Required: AuthoritySupervisor,
		From:     lb.Status,
		To:       closeEdge.to,
	}
}

// AllowedActor returns the authority needed to move lb to status to.
func AllowedActor(lb models.Logbook, to models.LogbookStatus) (Authority, bool) {
	return RequiredAuthority(lb.Status, to)
}

// CanRequest reports whether actor may move lb to status to.
func CanRequest(lb models.Logbook, to models.LogbookStatus, actor Actor, p Participants) bool {
	return Authorize(lb, to, actor, p) == nil
}
