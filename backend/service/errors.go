package service

import "errors"

var (
	// ErrInvalidDate marks a DOB cell that is not a recognisable date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNoHeaderFound marks a worksheet without a DOB-labelled header row.
	ErrNoHeaderFound = errors.New("no DOB header row")

	// ErrNoDestination marks a student older than every band after their current one.
	ErrNoDestination = errors.New("no destination band")

	// ErrPartialExecution is returned when a deletion batch failed part way.
	// The accompanying record lists what was and was not moved.
	ErrPartialExecution = errors.New("partial execution")

	// ErrEmptyRecord is returned when Revert is given nothing to undo.
	ErrEmptyRecord = errors.New("execution record has no moves to revert")
)
