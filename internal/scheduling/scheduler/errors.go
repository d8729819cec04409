package scheduler

import "errors"

// Domain errors for the scheduler package.
var (
	// ErrInvalidSequence is returned when a sequence definition fails
	// validation or its conditions fail to compile.
	ErrInvalidSequence = errors.New("scheduler: invalid sequence")

	// ErrDuplicateSequence is returned when two sequences share an ID.
	ErrDuplicateSequence = errors.New("scheduler: duplicate sequence id")
)
