package logbook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/praxis-api/internal/models"
)

var (
	// ErrInvalidTransition matches any InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid logbook transition")
	// ErrNotEligible matches any NotEligibleError.
	ErrNotEligible = errors.New("logbook not eligible for transition")
	// ErrUnauthorizedActor matches any UnauthorizedActorError.
	ErrUnauthorizedActor = errors.New("actor not allowed to perform transition")
)

// InvalidTransitionError reports a move that is not in the transition table,
// or one whose source status changed underneath the caller.
type InvalidTransitionError struct {
	From models.LogbookStatus
	To   models.LogbookStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move logbook from %s to %s", e.From, e.To)
}

// Is lets errors.Is match the sentinel.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NotEligibleError carries the reasons a guard refused a transition.
type NotEligibleError struct {
	To      models.LogbookStatus
	Reasons []string
}

func (e *NotEligibleError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("logbook not eligible for %s", e.To)
	}
	return fmt.Sprintf("logbook not eligible for %s: %s", e.To, strings.Join(e.Reasons, "; "))
}

// Is lets errors.Is match the sentinel.
func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

// UnauthorizedActorError reports an actor lacking authority for a transition.
type UnauthorizedActorError struct {
	ActorID  uint
	Role     string
	Required Authority
	From     models.LogbookStatus
	To       models.LogbookStatus
}

func (e *UnauthorizedActorError) Error() string {
	return fmt.Sprintf("actor %d (%s) cannot move logbook from %s to %s; requires %s", e.ActorID, e.Role, e.From, e.To, e.Required)
}

// Is lets errors.Is match the sentinel.
func (e *UnauthorizedActorError) Is(target error) bool {
	return target == ErrUnauthorizedActor
}
