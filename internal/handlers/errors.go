package handlers

import (
	"errors"

	"tokoauth/internal/repositories"
	"tokoauth/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// respondError writes the JSON error response for err. Unexpected errors are
// logged and hidden from the client.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, code, message := fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"

	switch {
	case errors.Is(err, services.ErrValidation):
		status, code, message = fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, services.ErrDuplicateEmail):
		status, code, message = fiber.StatusBadRequest, "DUPLICATE_EMAIL", "Email already exists"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, code, message = fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"
	case errors.Is(err, services.ErrUnauthenticated):
		status, code, message = fiber.StatusUnauthorized, "UNAUTHENTICATED", "Authorization header format must be 'Bearer <token>'"
	case errors.Is(err, services.ErrMalformedToken):
		status, code, message = fiber.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token"
	case errors.Is(err, services.ErrUnknownSubject):
		status, code, message = fiber.StatusNotFound, "UNKNOWN_SUBJECT", "User not found"
	case errors.Is(err, services.ErrForbidden):
		status, code, message = fiber.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, repositories.ErrUserNotFound):
		status, code, message = fiber.StatusNotFound, "NOT_FOUND", "User not found"
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   "VALIDATION_ERROR",
		"message": "Invalid request body: " + err.Error(),
	})
}
