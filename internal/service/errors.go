package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/praxis-api/internal/compliance"
)

var (
	// ErrTraineeNotFound indicates the trainee does not exist.
	ErrTraineeNotFound = errors.New("trainee not found")
	// ErrLogbookNotFound indicates the logbook does not exist.
	ErrLogbookNotFound = errors.New("logbook not found")
	// ErrCommentNotFound indicates the comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrSectionLocked indicates an entry targeted a locked logbook section.
	ErrSectionLocked = errors.New("logbook section is locked")
	// ErrImmutableEditAttempt indicates an attempt to change an immutable record.
	ErrImmutableEditAttempt = errors.New("comments cannot be edited once posted")
	// ErrSimulatedLimitExceeded indicates a simulated entry would break the cap.
	ErrSimulatedLimitExceeded = errors.New("simulated contact hours would exceed the limit")
	// ErrSupervisorNotAssigned indicates the supervisor has no accepted assignment.
	ErrSupervisorNotAssigned = errors.New("supervisor is not assigned to the trainee")
	// ErrForbidden indicates the actor may not access the resource.
	ErrForbidden = errors.New("access to resource denied")
	// ErrInvalidComment indicates a comment payload that cannot be stored.
	ErrInvalidComment = errors.New("invalid comment")
)

// SimulatedLimitError carries the pre-check that refused a simulated entry.
type SimulatedLimitError struct {
	Check compliance.SimulatedCheck
}

func (e *SimulatedLimitError) Error() string {
	return fmt.Sprintf("%s: %s h logged plus %s h would reach %s h, limit is %s h",
		ErrSimulatedLimitExceeded, e.Check.Current.StringFixed(2), e.Check.Adding.StringFixed(2),
		e.Check.TotalWouldBe.StringFixed(2), e.Check.Limit.StringFixed(2))
}

// Is lets errors.Is match ErrSimulatedLimitExceeded.
func (e *SimulatedLimitError) Is(target error) bool {
	return target == ErrSimulatedLimitExceeded
}
