package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable read by parseEnv.
// Nested groups are separated by a double underscore, for example
// APP_CONFIG__AUTH_JWT__ALGORITHM.
const EnvPrefix = "APP_CONFIG__"

type envDB struct {
	Driver string `env:"DRIVER"`
	URL    string `env:"URL"`
}

type envJWT struct {
	Algorithm                string `env:"ALGORITHM"`
	PrivateKeyPath           string `env:"PRIVATE_KEY_PATH"`
	PublicKeyPath            string `env:"PUBLIC_KEY_PATH"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	RefreshTokenExpireDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS"`
	RevokeOnRotate           bool   `env:"REVOKE_ON_ROTATE"`
}

type envS3 struct {
	Region       string `env:"REGION"`
	BaseEndpoint string `env:"BASE_ENDPOINT"`
	AccessKey    string `env:"ACCESS_KEY"`
	SecretKey    string `env:"SECRET_KEY"`
}

type envConfig struct {
	HTTPAddr      string        `env:"HTTP_ADDR"`
	DB            envDB         `envPrefix:"DB__"`
	AuthJWT       envJWT        `envPrefix:"AUTH_JWT__"`
	S3            envS3         `envPrefix:"S3__"`
	BcryptCost    int           `env:"BCRYPT_COST"`
	HashWorkers   int           `env:"HASH_WORKERS"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
	SweepGrace    time.Duration `env:"SWEEP_GRACE"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envSeparator:","`
	SecureCookies bool          `env:"SECURE_COOKIES"`
	LogLevel      string        `env:"LOG_LEVEL"`
	OTLPEndpoint  string        `env:"OTLP_ENDPOINT"`
}

// parseEnv overlays config with APP_CONFIG__* variables. Unset variables
// leave the current value in place. Token lifetimes are given in minutes
// (access) and days (refresh).
//
// A nil environ reads the process environment.
func parseEnv(config *Config, environ map[string]string) error {
	e := envConfig{
		HTTPAddr: config.HTTPAddr,
		DB:       envDB{Driver: config.DatabaseDriver, URL: config.DatabaseDSN},
		AuthJWT: envJWT{
			Algorithm:                config.JWTAlgorithm,
			PrivateKeyPath:           config.PrivateKeyPath,
			PublicKeyPath:            config.PublicKeyPath,
			AccessTokenExpireMinutes: int(config.AccessTokenTTL / time.Minute),
			RefreshTokenExpireDays:   int(config.RefreshTokenTTL / (24 * time.Hour)),
			RevokeOnRotate:           config.RevokeOnRotate,
		},
		S3: envS3{
			Region:       config.S3Region,
			BaseEndpoint: config.S3BaseEndpoint,
			AccessKey:    config.S3AccessKey,
			SecretKey:    config.S3SecretKey,
		},
		BcryptCost:    config.BcryptCost,
		HashWorkers:   config.HashWorkers,
		SweepInterval: config.SweepInterval,
		SweepGrace:    config.SweepGrace,
		RedisAddr:     config.RedisAddr,
		CORSOrigins:   config.CORSOrigins,
		SecureCookies: config.SecureCookies,
		LogLevel:      config.LogLevel,
		OTLPEndpoint:  config.OTLPEndpoint,
	}

	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return err
	}

	accessMinutes := int(config.AccessTokenTTL / time.Minute)
	refreshDays := int(config.RefreshTokenTTL / (24 * time.Hour))

	config.HTTPAddr = e.HTTPAddr
	config.DatabaseDriver = e.DB.Driver
	config.DatabaseDSN = e.DB.URL
	config.JWTAlgorithm = e.AuthJWT.Algorithm
	config.PrivateKeyPath = e.AuthJWT.PrivateKeyPath
	config.PublicKeyPath = e.AuthJWT.PublicKeyPath
	// only touch ttls that changed, so sub-unit defaults survive
	if e.AuthJWT.AccessTokenExpireMinutes != accessMinutes {
		config.AccessTokenTTL = time.Duration(e.AuthJWT.AccessTokenExpireMinutes) * time.Minute
	}
	if e.AuthJWT.RefreshTokenExpireDays != refreshDays {
		config.RefreshTokenTTL = time.Duration(e.AuthJWT.RefreshTokenExpireDays) * 24 * time.Hour
	}
	config.RevokeOnRotate = e.AuthJWT.RevokeOnRotate
	config.S3Region = e.S3.Region
	config.S3BaseEndpoint = e.S3.BaseEndpoint
	config.S3AccessKey = e.S3.AccessKey
	config.S3SecretKey = e.S3.SecretKey
	config.BcryptCost = e.BcryptCost
	config.HashWorkers = e.HashWorkers
	config.SweepInterval = e.SweepInterval
	config.SweepGrace = e.SweepGrace
	config.RedisAddr = e.RedisAddr
	config.CORSOrigins = e.CORSOrigins
	config.SecureCookies = e.SecureCookies
	config.LogLevel = e.LogLevel
	config.OTLPEndpoint = e.OTLPEndpoint

	return nil
}
