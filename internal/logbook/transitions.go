package logbook

import "github.com/noah-isme/praxis-api/internal/models"

// Authority names who may initiate a transition.
type Authority string

const (
	// AuthorityOwner is the trainee who owns the logbook.
	AuthorityOwner Authority = "owner"
	// AuthoritySupervisor is the supervisor assigned to the logbook.
	AuthoritySupervisor Authority = "assigned_supervisor"
)

type edge struct {
	from models.LogbookStatus
	to   models.LogbookStatus
}

var transitions = map[edge]Authority{
	{models.LogbookStatusDraft, models.LogbookStatusSubmitted}:              AuthorityOwner,
	{models.LogbookStatusSubmitted, models.LogbookStatusUnderReview}:        AuthoritySupervisor,
	{models.LogbookStatusUnderReview, models.LogbookStatusApproved}:         AuthoritySupervisor,
	{models.LogbookStatusUnderReview, models.LogbookStatusChangesRequested}: AuthoritySupervisor,
	{models.LogbookStatusChangesRequested, models.LogbookStatusSubmitted}:   AuthorityOwner,
	{models.LogbookStatusApproved, models.LogbookStatusEditRequested}:       AuthorityOwner,
	{models.LogbookStatusEditRequested, models.LogbookStatusUnlocked}:       AuthoritySupervisor,
	{models.LogbookStatusUnlocked, models.LogbookStatusSubmitted}:           AuthorityOwner,
}

var lockedStatuses = map[models.LogbookStatus]bool{
	models.LogbookStatusSubmitted:   true,
	models.LogbookStatusUnderReview: true,
	models.LogbookStatusApproved:    true,
	models.LogbookStatusLocked:      true,
}

// closeEdge is the structural close of an approved week. It sits outside the
// review table and is only reachable through Machine.Close.
var closeEdge = edge{models.LogbookStatusApproved, models.LogbookStatusLocked}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.LogbookStatus) bool {
	_, ok := transitions[edge{from, to}]
	return ok
}

// RequiredAuthority returns who may initiate from -> to.
func RequiredAuthority(from, to models.LogbookStatus) (Authority, bool) {
	authority, ok := transitions[edge{from, to}]
	return authority, ok
}

// NextStatuses lists the statuses reachable from status in one step.
func NextStatuses(from models.LogbookStatus) []models.LogbookStatus {
	next := make([]models.LogbookStatus, 0, 2)
	for _, to := range models.LogbookStatuses {
		if CanTransition(from, to) {
			next = append(next, to)
		}
	}
	return next
}

// LocksSections reports whether sections are read-only while in status.
func LocksSections(status models.LogbookStatus) bool {
	return lockedStatuses[status]
}

// CanClose reports whether a logbook in status may be closed.
func CanClose(status models.LogbookStatus) bool {
	return status == closeEdge.from
}

// IsTerminal reports whether neither a transition nor a close leaves status.
func IsTerminal(status models.LogbookStatus) bool {
	return len(NextStatuses(status)) == 0 && !CanClose(status)
}
