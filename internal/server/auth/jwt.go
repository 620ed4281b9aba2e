// Package auth encodes and decodes the signed access and refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/keys"
	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the payload of both token types. Username and Email are only
// set on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Type     TokenType `json:"type"`
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject %q: %w", c.Subject, common.ErrTokenMalformed)
	}
	return id, nil
}

// Settings are fixed at startup.
type Settings struct {
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Codec signs with the private key and verifies with the public one. It is
// immutable after NewCodec and safe for concurrent use.
type Codec struct {
	settings Settings
	keys     *keys.KeyPair
	now      func() time.Time
	parser   *jwt.Parser
}

type Option func(*Codec)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(s Settings, kp *keys.KeyPair, opts ...Option) (*Codec, error) {
	if kp == nil || kp.Method == nil {
		return nil, errors.New("key pair is required")
	}
	if s.Algorithm == "" {
		s.Algorithm = kp.Method.Alg()
	}
	if s.Algorithm != kp.Method.Alg() {
		return nil, fmt.Errorf("algorithm %s does not match keys for %s", s.Algorithm, kp.Method.Alg())
	}
	if s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}

	c := &Codec{settings: s, keys: kp, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{s.Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// TTL returns the configured lifetime of tokens of type t.
func (c *Codec) TTL(t TokenType) time.Duration {
	if t == RefreshToken {
		return c.settings.RefreshTTL
	}
	return c.settings.AccessTTL
}

// Encode stamps iat and exp onto claims and signs them. It returns the
// signed token and its exp, truncated to the precision carried in the token.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	s, err := jwt.NewWithClaims(c.keys.Method, claims).SignedString(c.keys.Private)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, claims.ExpiresAt.Time, nil
}

// Decode verifies token and checks it is of the expected type. Errors are
// common.ErrTokenExpired, common.ErrTokenTypeMismatch or
// common.ErrTokenMalformed.
func (c *Codec) Decode(token string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.settings.Algorithm {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return c.keys.Public, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%v: %w", err, common.ErrTokenMalformed)
	}

	if claims.Type != expected {
		return nil, common.ErrTokenTypeMismatch
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("missing sub or jti: %w", common.ErrTokenMalformed)
	}
	return claims, nil
}
