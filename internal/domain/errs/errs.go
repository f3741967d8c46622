package errs

import (
	"errors"
	"fmt"
)

// ValidationError is returned when caller supplied input is rejected.
type ValidationError struct {
	message string
}

func (v *ValidationError) Error() string {
	return v.message
}

func ValidationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	message string
}

func (n *NotFoundError) Error() string {
	return n.message
}

func NotFoundErrorf(format string, args ...any) *NotFoundError {
	return &NotFoundError{message: fmt.Sprintf(format, args...)}
}

type InternalError struct {
	message string
	cause   error
}

func (i *InternalError) Error() string {
	return i.message
}

func (i *InternalError) Unwrap() error {
	return i.cause
}

// InternalErrorf keeps the first error argument as the cause so errors.Is
// and errors.As still see through it.
func InternalErrorf(format string, args ...any) *InternalError {
	ie := &InternalError{message: fmt.Sprintf(format, args...)}
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			ie.cause = err
			break
		}
	}
	return ie
}

type CanceledError struct {
	message string
}

func (c *CanceledError) Error() string {
	return c.message
}

func CanceledErrorf(format string, args ...any) *CanceledError {
	return &CanceledError{message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError is returned when a request has no usable API key.
type UnauthorizedError struct {
	message string
}

func (u *UnauthorizedError) Error() string {
	return u.message
}

func UnauthorizedErrorf(format string, args ...any) *UnauthorizedError {
	return &UnauthorizedError{message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsCanceled(err error) bool {
	var target *CanceledError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

var (
	_ error = &ValidationError{}
	_ error = &NotFoundError{}
	_ error = &InternalError{}
	_ error = &CanceledError{}
	_ error = &UnauthorizedError{}
)
