package registry

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidInput  = errors.New("invalid input")
)

// ValidationError reports which request fields failed their checks. It
// matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields []string
	err    error
}

func newValidationError(err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{err: err}
	}

	return &ValidationError{
		Fields: lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
			return fe.Field() + ":" + fe.Tag()
		}),
		err: err,
	}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error() + ": " + e.err.Error()
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidInput, e.err}
}
