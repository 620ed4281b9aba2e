// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables and command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the authkeeper server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP API.
//   - DatabaseDriver / DatabaseDSN: "pgx" (PostgreSQL) or "sqlite" and its DSN.
//   - JWTAlgorithm: asymmetric signing algorithm (RS256, ES256, EdDSA, ...).
//   - PrivateKeyPath / PublicKeyPath: PEM key locations, a file path or s3://bucket/key.
//   - AccessTokenTTL / RefreshTokenTTL: token lifetimes.
//   - BcryptCost / HashWorkers: password hashing cost and parallelism.
//   - RevokeOnRotate: make refresh tokens single-use.
//   - SweepInterval / SweepGrace: ledger pruning schedule; interval 0 disables it.
//   - RedisAddr: optional revocation cache; empty disables it.
//   - S3*: object storage used for s3:// key locations.
//   - CORSOrigins / SecureCookies: browser-facing HTTP settings.
//   - LogLevel / OTLPEndpoint: logging and tracing.
type Config struct {
	HTTPAddr        string
	DatabaseDriver  string
	DatabaseDSN     string
	JWTAlgorithm    string
	PrivateKeyPath  string
	PublicKeyPath   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	HashWorkers     int
	RevokeOnRotate  bool
	SweepInterval   time.Duration
	SweepGrace      time.Duration
	RedisAddr       string
	S3Region        string
	S3BaseEndpoint  string
	S3AccessKey     string
	S3SecretKey     string
	CORSOrigins     []string
	SecureCookies   bool
	LogLevel        string
	OTLPEndpoint    string
}

// LoadDefaults populates Config with development defaults: a local SQLite
// database and keys under certs/.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:authkeeper.db?_pragma=foreign_keys(1)"
	c.JWTAlgorithm = "RS256"
	c.PrivateKeyPath = "certs/jwt-private.pem"
	c.PublicKeyPath = "certs/jwt-public.pem"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 30 * 24 * time.Hour
	c.BcryptCost = 10
	c.HashWorkers = 0
	c.RevokeOnRotate = false
	c.SweepInterval = time.Hour
	c.SweepGrace = 24 * time.Hour
	c.RedisAddr = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.S3AccessKey = ""
	c.S3SecretKey = ""
	c.CORSOrigins = []string{"http://localhost:3000"}
	c.SecureCookies = true
	c.LogLevel = "info"
	c.OTLPEndpoint = ""
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseDriver != "pgx" && c.DatabaseDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("database driver must be pgx or sqlite, got %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("access token ttl must be shorter than refresh token ttl"))
	}
	if c.SweepInterval < 0 || c.SweepGrace < 0 {
		errs = append(errs, errors.New("sweep interval and grace must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg, nil); err != nil {
		panic(err)
	}
	parseFlags(cfg)
	return cfg
}

// LoadEnvConfig is LoadConfig without the server flags, for tools that
// define their own flag set.
func LoadEnvConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}
