package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-b string   database driver, "pgx" or "sqlite"
//	-d string   database DSN
//	-j string   JWT signing algorithm
//	-k string   private key location (file or s3://bucket/key)
//	-K string   public key location
//	-t int      access token validity, minutes
//	-r int      refresh token validity, days
//	-o bool     revoke refresh tokens on rotation
//	-w int      password hashing workers
//	-i int      ledger sweep interval, minutes (0 disables)
//	-R string   redis address for the revocation cache
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-u string   S3 access key
//	-p string   S3 secret key
//	-O string   list of allowed CORS origins, comma separated
//	-s bool     mark cookies Secure
//	-l string   log level
//	-T string   OTLP/HTTP trace endpoint URL (e.g., "http://localhost:4318")
//
// The args are first narrowed with flagx.FilterArgs so flags meant for other
// components do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-b", "-d", "-j", "-k", "-K", "-t", "-r", "-o", "-w", "-i",
		"-R", "-g", "-e", "-u", "-p", "-O", "-s", "-l", "-T",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "b", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTAlgorithm, "j", config.JWTAlgorithm, "JWT signing algorithm")
	fs.StringVar(&config.PrivateKeyPath, "k", config.PrivateKeyPath, "private key location")
	fs.StringVar(&config.PublicKeyPath, "K", config.PublicKeyPath, "public key location")

	accessMinutes := fs.Int("t", int(config.AccessTokenTTL/time.Minute), "access token validity (in minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenTTL/(24*time.Hour)), "refresh token validity (in days)")

	fs.BoolVar(&config.RevokeOnRotate, "o", config.RevokeOnRotate, "revoke refresh token on rotation")
	fs.IntVar(&config.HashWorkers, "w", config.HashWorkers, "password hashing workers")

	sweepMinutes := fs.Int("i", int(config.SweepInterval/time.Minute), "sweep interval (in minutes)")

	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")

	origins := fs.String("O", strings.Join(config.CORSOrigins, ","), "allowed CORS origins")

	fs.BoolVar(&config.SecureCookies, "s", config.SecureCookies, "secure cookies")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.OTLPEndpoint, "T", config.OTLPEndpoint, "OTLP trace endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["t"] {
		config.AccessTokenTTL = time.Duration(*accessMinutes) * time.Minute
	}
	if set["r"] {
		config.RefreshTokenTTL = time.Duration(*refreshDays) * 24 * time.Hour
	}
	if set["i"] {
		config.SweepInterval = time.Duration(*sweepMinutes) * time.Minute
	}
	if set["O"] {
		config.CORSOrigins = splitList(*origins)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
