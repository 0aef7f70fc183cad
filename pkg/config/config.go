package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Token modes.
const (
	TokenModeLegacy = "legacy" // token_<id>_<millis>, unsigned
	TokenModeJWT    = "jwt"
)

// Config groups the application settings.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseDriver string // sqlite or postgres
	DatabaseDSN    string

	SuperAdmin SuperAdminConfig

	BcryptCost int
	TokenMode  string
	JWTSecret  string
	TokenTTL   time.Duration

	RabbitMQURL string // empty disables event publishing
}

// SuperAdminConfig describes the account the seeder guarantees.
type SuperAdminConfig struct {
	Email        string
	Password     string
	Name         string
	Phone        string
	ID           uint
	ResetEnabled bool
	ResetSecret  string
}

// Load reads an optional .env file, then environment variables, then defaults.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "db.sqlite")
	v.SetDefault("SUPER_ADMIN_EMAIL", "Abdellah@cosmutics.com")
	v.SetDefault("SUPER_ADMIN_PASSWORD", "123456789")
	v.SetDefault("SUPER_ADMIN_NAME", "Abdellah Taha")
	v.SetDefault("SUPER_ADMIN_PHONE", "01000000000")
	v.SetDefault("SUPER_ADMIN_ID", 1)
	v.SetDefault("SUPER_ADMIN_RESET_ENABLED", false)
	v.SetDefault("SUPER_ADMIN_RESET_SECRET", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("TOKEN_MODE", TokenModeLegacy)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
}

// FromViper builds a Config from v and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	port := v.GetString("APP_PORT")
	if port != "" && !strings.Contains(port, ":") {
		port = ":" + port
	}

	cfg := Config{
		Env:            v.GetString("APP_ENV"),
		Port:           port,
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		SuperAdmin: SuperAdminConfig{
			Email:        v.GetString("SUPER_ADMIN_EMAIL"),
			Password:     v.GetString("SUPER_ADMIN_PASSWORD"),
			Name:         v.GetString("SUPER_ADMIN_NAME"),
			Phone:        v.GetString("SUPER_ADMIN_PHONE"),
			ID:           v.GetUint("SUPER_ADMIN_ID"),
			ResetEnabled: v.GetBool("SUPER_ADMIN_RESET_ENABLED"),
			ResetSecret:  v.GetString("SUPER_ADMIN_RESET_SECRET"),
		},
		BcryptCost:  v.GetInt("BCRYPT_COST"),
		TokenMode:   strings.ToLower(v.GetString("TOKEN_MODE")),
		JWTSecret:   v.GetString("JWT_SECRET"),
		TokenTTL:    v.GetDuration("TOKEN_TTL"),
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.SuperAdmin.Email == "" {
		return fmt.Errorf("SUPER_ADMIN_EMAIL must not be empty")
	}
	if len(c.SuperAdmin.Password) < 6 {
		return fmt.Errorf("SUPER_ADMIN_PASSWORD must be at least 6 characters")
	}
	switch c.TokenMode {
	case TokenModeLegacy:
	case TokenModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when TOKEN_MODE=%s", TokenModeJWT)
		}
		if c.TokenTTL <= 0 {
			return fmt.Errorf("TOKEN_TTL must be positive")
		}
	default:
		return fmt.Errorf("unsupported TOKEN_MODE %q", c.TokenMode)
	}
	return nil
}
