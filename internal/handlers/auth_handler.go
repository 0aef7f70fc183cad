package handlers

import (
	"crypto/subtle"

	"tokoauth/internal/middleware"
	"tokoauth/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ResetOptions controls the emergency super-admin reset route.
type ResetOptions struct {
	Enabled bool
	Secret  string // when set, must be sent in the X-Reset-Secret header
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	seeder      *services.Seeder
	reset       ResetOptions
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, seeder *services.Seeder, reset ResetOptions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		seeder:      seeder,
		reset:       reset,
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/login", h.HandleLogin)
	router.Post("/register", h.HandleRegister)
	authRequired := middleware.AuthRequired(h.authService, h.log)
	router.Get("/profile", authRequired, h.HandleGetProfile)
	router.Patch("/profile", authRequired, h.HandleUpdateProfile)
	if h.reset.Enabled {
		router.Post("/reset-super-admin", h.HandleResetSuperAdmin)
	}
}

// HandleLogin handles user login and issues a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	result, err := h.authService.Login(req)
	if err != nil {
		h.log.Info().Err(err).Msg("login failed")
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	result, err := h.authService.Register(req, middleware.BearerToken(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

// HandleGetProfile returns the authenticated user.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	return c.JSON(h.authService.Project(middleware.Caller(c)))
}

// HandleUpdateProfile applies a self-service update. id and role in the
// body are ignored.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileUpdateInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	user, err := h.authService.UpdateOwnProfile(middleware.Caller(c), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// HandleResetSuperAdmin recreates the super-admin with the default password.
// It is only routed when ResetOptions.Enabled is set.
func (h *AuthHandler) HandleResetSuperAdmin(c *fiber.Ctx) error {
	if h.reset.Secret != "" &&
		subtle.ConstantTimeCompare([]byte(c.Get("X-Reset-Secret")), []byte(h.reset.Secret)) != 1 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "FORBIDDEN",
			"message": "Invalid reset secret",
		})
	}

	account, err := h.seeder.Reset()
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Super admin has been reset",
		"credentials": fiber.Map{
			"email":    account.Email,
			"password": account.Password,
		},
	})
}
