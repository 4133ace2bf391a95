package store

import (
	"errors"

	"github.com/listenupapp/booklist-server/internal/validation"
)

// Sentinel errors. Backends wrap them with %w so callers can match with errors.Is.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

var validator = validation.New()

// Validate checks a record's validate tags before a write.
// Failures are BAD_USER_INPUT domain errors.
func Validate(record any) error {
	return validator.Validate(record)
}
