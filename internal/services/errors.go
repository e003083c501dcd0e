package services

import (
	"errors"
	"fmt"
)

type ServiceError struct {
	Status  int
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: 404, Message: msg}
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: 400, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Status: 403, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: 401, Message: msg}
}

// IsNotFound reports whether err carries a 404 ServiceError.
func IsNotFound(err error) bool {
	var serr ServiceError
	return errors.As(err, &serr) && serr.Status == 404
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
