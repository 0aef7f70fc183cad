package middleware

import (
	"errors"

	"tokoauth/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// AuthRequired rejects requests without a bearer token that resolves to a
// stored user. The user is stored under LocalCaller for the next handler.
func AuthRequired(authService *services.AuthService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := authService.Authenticate(BearerToken(c))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("authentication failed")
			return unauthenticated(c, log, err)
		}

		c.Locals(LocalCaller, user)
		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, code, message := fiber.StatusUnauthorized, "UNAUTHENTICATED", "Authorization header format must be 'Bearer <token>'"

	switch {
	case errors.Is(err, services.ErrMalformedToken):
		message = "Invalid or expired token"
	case errors.Is(err, services.ErrUnknownSubject):
		status, code, message = fiber.StatusNotFound, "UNKNOWN_SUBJECT", "User not found"
	case !errors.Is(err, services.ErrUnauthenticated):
		log.Error().Err(err).Str("path", c.Path()).Msg("failed to resolve bearer token")
		status, code, message = fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}
