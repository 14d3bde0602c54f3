package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "directory-service", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	require.False(t, cfg.App.IsProduction())

	require.Equal(t, time.Hour, cfg.Auth.TokenTTL())
	require.Equal(t, 12, cfg.Auth.BcryptCost)
	require.Equal(t, "token", cfg.Auth.CookieName)
	require.Equal(t, time.Minute, cfg.Auth.LoginRateWindow())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("AUTH_COOKIE_NAME", "session")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	require.True(t, cfg.App.IsProduction())
	require.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL())
	require.Equal(t, "session", cfg.Auth.CookieName)
	require.False(t, cfg.Postgres.RunMigrations)
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

func TestAuthConfigFallbacks(t *testing.T) {
	t.Parallel()

	auth := AuthConfig{}
	require.Equal(t, time.Hour, auth.TokenTTL())
	require.Equal(t, time.Minute, auth.LoginRateWindow())
}
