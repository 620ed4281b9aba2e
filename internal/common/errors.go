// Package common defines shared constants and sentinel errors used across
// the authkeeper server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Credential and account errors.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotActive          = errors.New("user account is not active")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")

	// Token lifecycle errors.
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenMalformed    = errors.New("invalid token")
	ErrTokenTypeMismatch = errors.New("invalid token type")
	ErrTokenRevoked      = errors.New("refresh token has been revoked")
)
