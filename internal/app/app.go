package app

import (
	"fmt"
	"time"

	"tokoauth/internal/handlers"
	"tokoauth/internal/middleware"
	"tokoauth/internal/repositories"
	"tokoauth/internal/services"
	"tokoauth/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// App is the wired HTTP application.
type App struct {
	Fiber       *fiber.App
	AuthService *services.AuthService
	Seeder      *services.Seeder
}

// New wires the store, services and routes, then runs the bootstrap seeder
// so the super-admin exists before any request is served. events may be nil.
func New(cfg config.Config, db *gorm.DB, events services.EventPublisher, log zerolog.Logger) (*App, error) {
	tokens, err := newTokenCodec(cfg)
	if err != nil {
		return nil, err
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)

	// --- Services ---
	hasher := services.NewPasswordHasher(cfg.BcryptCost)
	authService := services.NewAuthService(userRepo, hasher, tokens, cfg.SuperAdmin.Email, events, log)
	userService := services.NewUserService(userRepo, authService, hasher, events, log)
	seeder := services.NewSeeder(userRepo, hasher, services.SuperAdminAccount{
		Email:    cfg.SuperAdmin.Email,
		Password: cfg.SuperAdmin.Password,
		Name:     cfg.SuperAdmin.Name,
		Phone:    cfg.SuperAdmin.Phone,
		ID:       cfg.SuperAdmin.ID,
	}, events, log)

	// --- Bootstrap ---
	if _, err := seeder.Seed(); err != nil {
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, seeder, handlers.ResetOptions{
		Enabled: cfg.SuperAdmin.ResetEnabled,
		Secret:  cfg.SuperAdmin.ResetSecret,
	}, log)
	userHandler := handlers.NewUserResourceHandler(userService, authService, log)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if log.GetLevel() <= zerolog.InfoLevel {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Routes ---
	app.Use(middleware.RoleGuard(authService, log))
	authHandler.RegisterRoutes(app)
	userHandler.RegisterRoutes(app)
	userHandler.RegisterRoutes(app.Group("/api"))

	if cfg.SuperAdmin.ResetEnabled {
		log.Warn().Msg("unauthenticated super-admin reset route is enabled")
	}

	return &App{
		Fiber:       app,
		AuthService: authService,
		Seeder:      seeder,
	}, nil
}

func newTokenCodec(cfg config.Config) (services.TokenCodec, error) {
	switch cfg.TokenMode {
	case config.TokenModeLegacy, "":
		return services.NewLegacyTokenCodec(), nil
	case config.TokenModeJWT:
		return services.NewJWTTokenCodec(cfg.JWTSecret, cfg.TokenTTL), nil
	default:
		return nil, fmt.Errorf("unsupported token mode %q", cfg.TokenMode)
	}
}
