package repository

import "errors"

var (
	// ErrStaleLogbook is returned when a logbook's status changed between the
	// read and the compare-and-swap update.
	ErrStaleLogbook = errors.New("logbook status changed concurrently")
	// ErrSectionLocked is returned when writing into a locked logbook section.
	ErrSectionLocked = errors.New("logbook section is locked")
)
