package config_test

import (
	"testing"
	"time"

	"tokoauth/pkg/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "db.sqlite", cfg.DatabaseDSN)
	assert.Equal(t, "Abdellah@cosmutics.com", cfg.SuperAdmin.Email)
	assert.Equal(t, "123456789", cfg.SuperAdmin.Password)
	assert.Equal(t, "Abdellah Taha", cfg.SuperAdmin.Name)
	assert.Equal(t, uint(1), cfg.SuperAdmin.ID)
	assert.False(t, cfg.SuperAdmin.ResetEnabled)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, config.TokenModeLegacy, cfg.TokenMode)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]interface{}{
		"APP_PORT":                  "8080",
		"DATABASE_DRIVER":           "POSTGRES",
		"DATABASE_DSN":              "host=localhost",
		"SUPER_ADMIN_RESET_ENABLED": "true",
		"TOKEN_MODE":                "JWT",
		"JWT_SECRET":                "s3cret",
		"TOKEN_TTL":                 "30m",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.True(t, cfg.SuperAdmin.ResetEnabled)
	assert.Equal(t, config.TokenModeJWT, cfg.TokenMode)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestFromViper_Invalid(t *testing.T) {
	for name, overrides := range map[string]map[string]interface{}{
		"driver":         {"DATABASE_DRIVER": "mysql"},
		"empty email":    {"SUPER_ADMIN_EMAIL": ""},
		"short password": {"SUPER_ADMIN_PASSWORD": "12345"},
		"jwt no secret":  {"TOKEN_MODE": "jwt"},
		"jwt no ttl":     {"TOKEN_MODE": "jwt", "JWT_SECRET": "s", "TOKEN_TTL": "0s"},
		"token mode":     {"TOKEN_MODE": "paseto"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromViper(newViper(overrides))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", ":7000")
	t.Setenv("SUPER_ADMIN_EMAIL", "boss@store.test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Port)
	assert.Equal(t, "boss@store.test", cfg.SuperAdmin.Email)
}
