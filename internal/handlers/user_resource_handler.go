package handlers

import (
	"strconv"

	"tokoauth/internal/middleware"
	"tokoauth/internal/models"
	"tokoauth/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// UserResourceHandler exposes the user collection as a generic REST resource.
// Writes are expected to pass through middleware.RoleGuard first.
type UserResourceHandler struct {
	service     *services.UserService
	authService *services.AuthService
	log         zerolog.Logger
}

// NewUserResourceHandler creates a new UserResourceHandler.
func NewUserResourceHandler(service *services.UserService, authService *services.AuthService, log zerolog.Logger) *UserResourceHandler {
	return &UserResourceHandler{
		service:     service,
		authService: authService,
		log:         log,
	}
}

// RegisterRoutes registers the user collection routes.
func (h *UserResourceHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Post("/", h.HandleCreateUser)
	userRoutes.Put("/:id", h.HandleUpdateUser)
	userRoutes.Patch("/:id", h.HandleUpdateUser)
	userRoutes.Delete("/:id", h.HandleDeleteUser)
}

// HandleListUsers lists users, filtered by the id, email, name, phone and
// role query parameters.
func (h *UserResourceHandler) HandleListUsers(c *fiber.Ctx) error {
	filter := models.UserFilter{
		Email: c.Query("email"),
		Name:  c.Query("name"),
		Phone: c.Query("phone"),
		Role:  models.Role(c.Query("role")),
	}
	if raw := c.Query("id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return respondError(c, h.log, err)
		}
		filter.ID = id
	}

	users, err := h.service.List(filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(users)
}

// HandleGetUser returns a single user.
func (h *UserResourceHandler) HandleGetUser(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	user, err := h.service.Get(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

// HandleCreateUser creates a user.
func (h *UserResourceHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	user, err := h.service.Create(h.caller(c), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleUpdateUser updates a user. PUT and PATCH behave the same: only the
// fields present in the body change.
func (h *UserResourceHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.UserInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	user, err := h.service.Update(h.caller(c), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

// HandleDeleteUser hard-deletes a user.
func (h *UserResourceHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.service.Delete(h.caller(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// caller returns the user resolved by RoleGuard, resolving the token itself
// when the guard did not run.
func (h *UserResourceHandler) caller(c *fiber.Ctx) *models.User {
	if u := middleware.Caller(c); u != nil {
		return u
	}
	u, err := h.authService.Authenticate(middleware.BearerToken(c))
	if err != nil {
		return nil
	}
	return u
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, services.ValidationErrorf("invalid user id %q", raw)
	}
	return uint(id), nil
}
