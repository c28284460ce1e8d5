package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY_ACCESS_TOKEN", "")
	t.Setenv("SECRET_KEY_REFRESH_TOKEN", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_ENFORCE_REFRESH_REVOCATION", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	assert.Equal(t, time.Hour, cfg.Auth.OTPTTL())
	assert.True(t, cfg.Auth.EnforceRefreshRevocation)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("AUTH_ENFORCE_REFRESH_REVOCATION", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("STOREFRONT_HTTP_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.False(t, cfg.Auth.EnforceRefreshRevocation)
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")
	t.Setenv("AUTH_COOKIE_SECURE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.CookieSecure)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_SharedSecretsRejected(t *testing.T) {
	t.Setenv("SECRET_KEY_ACCESS_TOKEN", "same")
	t.Setenv("SECRET_KEY_REFRESH_TOKEN", "same")

	_, err := Load()
	require.Error(t, err)
}
