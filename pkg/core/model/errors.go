package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// NotFoundError is returned when a task or user id is unknown
type NotFoundError struct {
	Kind string // "task" or "user"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when a task is not in a state that permits the operation,
// including when a concurrent update changed the status first
type ConflictError struct {
	TaskID string
	Op     string
	Status TaskStatus
	Reason string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("cannot %s task %s in status %s", e.Op, e.TaskID, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError is returned for invalid input or an actor that may not perform the operation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
