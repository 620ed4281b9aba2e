package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	err := parseEnv(&cfg, map[string]string{
		"APP_CONFIG__DB__DRIVER":                            "pgx",
		"APP_CONFIG__DB__URL":                               "postgres://u:p@db:5432/auth",
		"APP_CONFIG__AUTH_JWT__ALGORITHM":                   "ES384",
		"APP_CONFIG__AUTH_JWT__ACCESS_TOKEN_EXPIRE_MINUTES": "5",
		"APP_CONFIG__AUTH_JWT__REFRESH_TOKEN_EXPIRE_DAYS":   "7",
		"APP_CONFIG__AUTH_JWT__REVOKE_ON_ROTATE":            "true",
		"APP_CONFIG__S3__REGION":                            "eu-central-1",
		"APP_CONFIG__SWEEP_INTERVAL":                        "10m",
		"APP_CONFIG__CORS_ORIGINS":                          "https://a.example,https://b.example",
		"APP_CONFIG__SECURE_COOKIES":                        "false",
		"UNRELATED":                                         "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://u:p@db:5432/auth", cfg.DatabaseDSN)
	assert.Equal(t, "ES384", cfg.JWTAlgorithm)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.True(t, cfg.RevokeOnRotate)
	assert.Equal(t, "eu-central-1", cfg.S3Region)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.SecureCookies)

	// untouched
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "certs/jwt-private.pem", cfg.PrivateKeyPath)
	assert.Equal(t, 24*time.Hour, cfg.SweepGrace)
}

func TestParseEnv_Empty(t *testing.T) {
	cfg := Config{AccessTokenTTL: 90 * time.Second, HTTPAddr: ":1"}

	require.NoError(t, parseEnv(&cfg, map[string]string{}))

	assert.Equal(t, 90*time.Second, cfg.AccessTokenTTL)
	assert.Equal(t, ":1", cfg.HTTPAddr)
}

func TestParseEnv_BadValue(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	err := parseEnv(&cfg, map[string]string{
		"APP_CONFIG__AUTH_JWT__ACCESS_TOKEN_EXPIRE_MINUTES": "soon",
	})
	assert.Error(t, err)
}
