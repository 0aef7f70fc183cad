package services

import (
	"errors"

	"tokoauth/internal/repositories"
)

// Errors returned by the services. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = repositories.ErrDuplicateEmail
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrMalformedToken     = errors.New("malformed token")
	ErrUnknownSubject     = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
)
