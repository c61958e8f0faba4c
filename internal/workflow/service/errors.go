package service

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStageNotOpen is returned when a decision targets a row that is not Pending, In Progress or Submitted.
	ErrStageNotOpen = errors.New("workflow stage is not open for a decision")
	// ErrStageAlreadyDecided is returned when another decision claimed the row first.
	ErrStageAlreadyDecided = errors.New("workflow stage was already decided")
	// ErrInvalidInput wraps request problems that are not routing validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
