package middleware

import (
	"encoding/json"
	"strings"

	"tokoauth/internal/models"
	"tokoauth/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// LocalCaller is the fiber.Locals key holding the resolved *models.User.
const LocalCaller = "caller"

// usersCollection is the resource name guarded by RoleGuard.
const usersCollection = "users"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is missing or malformed.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Caller returns the user resolved by RoleGuard, or nil.
func Caller(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalCaller).(*models.User)
	return u
}

// RoleGuard stops privilege escalation on the user collection. For writes to
// /users it resolves the bearer token, if any, and:
//   - rejects DELETE unless the caller is the super-admin;
//   - rejects bodies setting role to anything but customer unless the caller
//     is the super-admin.
//
// A missing or unresolvable token does not fail the request by itself; the
// caller then simply is not the super-admin.
func RoleGuard(authService *services.AuthService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isWrite(c.Method()) || !targetsCollection(c.Path(), usersCollection) {
			return c.Next()
		}

		var caller *models.User
		if token := BearerToken(c); token != "" {
			u, err := authService.Authenticate(token)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token not resolved")
			} else {
				caller = u
				c.Locals(LocalCaller, u)
			}
		}
		superAdmin := authService.IsSuperAdmin(caller)

		if c.Method() == fiber.MethodDelete && !superAdmin {
			log.Warn().Str("path", c.Path()).Interface("caller_id", callerID(caller)).Msg("user deletion denied")
			return forbidden(c, "Only the super-admin can delete users")
		}

		if role, ok := requestedRole(c.Body()); ok && role != models.RoleCustomer && !superAdmin {
			log.Warn().Str("path", c.Path()).Str("role", string(role)).Interface("caller_id", callerID(caller)).
				Msg("role assignment denied")
			return forbidden(c, "Only the super-admin can assign roles")
		}

		return c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		return true
	}
	return false
}

// targetsCollection reports whether path addresses collection, optionally
// under an /api prefix. Routing is case-insensitive, so is the match.
func targetsCollection(path, collection string) bool {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 1 && strings.EqualFold(segments[0], "api") {
		segments = segments[1:]
	}
	return strings.EqualFold(segments[0], collection)
}

// requestedRole reports the role a JSON body asks for. A role that is present
// but not a string is reported as an unknown role so the check fails closed.
func requestedRole(body []byte) (models.Role, bool) {
	if len(body) == 0 {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	// encoding/json matches keys case-insensitively, so must this check.
	for key, raw := range fields {
		if !strings.EqualFold(key, "role") {
			continue
		}
		var role string
		if err := json.Unmarshal(raw, &role); err != nil {
			return models.Role(raw), true
		}
		if role != "" {
			return models.Role(role), true
		}
	}
	return "", false
}

func callerID(u *models.User) interface{} {
	if u == nil {
		return nil
	}
	return u.ID
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"success": false,
		"error":   "FORBIDDEN",
		"message": message,
	})
}
