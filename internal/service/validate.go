package service

import (
	"errors"

	"github.com/BuzzLyutic/task-api/internal/model"
)

type ValidationKind int

const (
	KindMissingField ValidationKind = iota + 1
	KindInvalidStatus
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidStatus = errors.New("invalid status")
)

// ValidationError is returned by Validate. Its message is safe to show to clients.
type ValidationError struct {
	Kind ValidationKind
}

func (e *ValidationError) Error() string {
	if e.Kind == KindInvalidStatus {
		return "Invalid status. Must be one of: pending, in-progress, completed"
	}
	return "Title, description, and status are required"
}

func (e *ValidationError) Unwrap() error {
	if e.Kind == KindInvalidStatus {
		return ErrInvalidStatus
	}
	return ErrMissingField
}

// Validate checks that all fields are present and the status is known.
// Values are returned exactly as given.
func Validate(in model.TaskInput) (model.TaskInput, error) {
	if in.Title == "" || in.Description == "" || in.Status == "" {
		return model.TaskInput{}, &ValidationError{Kind: KindMissingField}
	}
	if !in.Status.Valid() {
		return model.TaskInput{}, &ValidationError{Kind: KindInvalidStatus}
	}
	return in, nil
}
