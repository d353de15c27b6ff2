package services

import "errors"

// InputError marks a request the caller has to fix. Handlers answer it
// with 400 and the wrapped message.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError wraps err as an *InputError
func NewInputError(err error) error {
	return &InputError{Err: err}
}

func invalid(err error) error {
	return NewInputError(err)
}

// IsInputError reports whether err is or wraps an *InputError
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}
