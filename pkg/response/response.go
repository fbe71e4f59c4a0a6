package response

import (
	"errors"
	"fmt"
)

// Error is an error that knows which HTTP status it maps to
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// Wrap attaches cause to a sentinel created by NewError, keeping the sentinel's code.
// errors.Is matches both the sentinel and the cause.
func Wrap(sentinel error, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
