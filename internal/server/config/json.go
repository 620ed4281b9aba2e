package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// It is pre-filled from the current Config, so keys missing from the file
// keep their earlier value.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	DatabaseDriver  string         `json:"database_driver"`
	DatabaseDSN     string         `json:"database_dsn"`
	JWTAlgorithm    string         `json:"jwt_algorithm"`
	PrivateKeyPath  string         `json:"private_key_path"`
	PublicKeyPath   string         `json:"public_key_path"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl"`
	BcryptCost      int            `json:"bcrypt_cost"`
	HashWorkers     int            `json:"hash_workers"`
	RevokeOnRotate  bool           `json:"revoke_on_rotate"`
	SweepInterval   timex.Duration `json:"sweep_interval"`
	SweepGrace      timex.Duration `json:"sweep_grace"`
	RedisAddr       string         `json:"redis_addr"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
	CORSOrigins     []string       `json:"cors_origins"`
	SecureCookies   bool           `json:"secure_cookies"`
	LogLevel        string         `json:"log_level"`
	OTLPEndpoint    string         `json:"otlp_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c/-config flag or, failing that, the
// APP_CONFIG__CONFIG_FILE environment variable. With neither set nothing is
// loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.HTTPAddr = c.HTTPAddr
	config.DatabaseDriver = c.DatabaseDriver
	config.DatabaseDSN = c.DatabaseDSN
	config.JWTAlgorithm = c.JWTAlgorithm
	config.PrivateKeyPath = c.PrivateKeyPath
	config.PublicKeyPath = c.PublicKeyPath
	config.AccessTokenTTL = c.AccessTokenTTL.Duration
	config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	config.BcryptCost = c.BcryptCost
	config.HashWorkers = c.HashWorkers
	config.RevokeOnRotate = c.RevokeOnRotate
	config.SweepInterval = c.SweepInterval.Duration
	config.SweepGrace = c.SweepGrace.Duration
	config.RedisAddr = c.RedisAddr
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.CORSOrigins = c.CORSOrigins
	config.SecureCookies = c.SecureCookies
	config.LogLevel = c.LogLevel
	config.OTLPEndpoint = c.OTLPEndpoint
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:        c.HTTPAddr,
		DatabaseDriver:  c.DatabaseDriver,
		DatabaseDSN:     c.DatabaseDSN,
		JWTAlgorithm:    c.JWTAlgorithm,
		PrivateKeyPath:  c.PrivateKeyPath,
		PublicKeyPath:   c.PublicKeyPath,
		AccessTokenTTL:  timex.Duration{Duration: c.AccessTokenTTL},
		RefreshTokenTTL: timex.Duration{Duration: c.RefreshTokenTTL},
		BcryptCost:      c.BcryptCost,
		HashWorkers:     c.HashWorkers,
		RevokeOnRotate:  c.RevokeOnRotate,
		SweepInterval:   timex.Duration{Duration: c.SweepInterval},
		SweepGrace:      timex.Duration{Duration: c.SweepGrace},
		RedisAddr:       c.RedisAddr,
		S3Region:        c.S3Region,
		S3BaseEndpoint:  c.S3BaseEndpoint,
		S3AccessKey:     c.S3AccessKey,
		S3SecretKey:     c.S3SecretKey,
		CORSOrigins:     c.CORSOrigins,
		SecureCookies:   c.SecureCookies,
		LogLevel:        c.LogLevel,
		OTLPEndpoint:    c.OTLPEndpoint,
	}
}
