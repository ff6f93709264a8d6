package compliance

import (
	"errors"
	"fmt"
)

// ErrUnknownProgram is matched by every UnknownProgramError.
var ErrUnknownProgram = errors.New("unknown program")

// ErrInvalidCatalog indicates a catalog document or profile failed validation.
var ErrInvalidCatalog = errors.New("invalid requirement catalog")

// UnknownProgramError is returned when no profile is registered for a program/track pair.
type UnknownProgramError struct {
	Program ProgramType
	Track   Track
	Version string
}

func (e *UnknownProgramError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("unknown program %q track %q version %q", e.Program, e.Track, e.Version)
	}
	return fmt.Sprintf("unknown program %q track %q", e.Program, e.Track)
}

// Is lets callers match with errors.Is(err, ErrUnknownProgram).
func (e *UnknownProgramError) Is(target error) bool {
	return target == ErrUnknownProgram
}
