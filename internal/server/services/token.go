// Package services contains server-side business logic. This file implements
// TokenService: credential checks, issuance and rotation of signed token
// pairs, and revocation backed by the refresh-token ledger.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocationcache"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/authkeeper/internal/server/services"

// TokenPair is returned by every successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Options tunes TokenService behavior. The zero value allows a refresh token
// to be rotated until it expires or is revoked.
type Options struct {
	// RevokeOnRotate revokes the presented refresh token as part of a
	// successful rotation, so each refresh token can be used once.
	RevokeOnRotate bool
}

// TokenService holds no state of its own; every call is an independent unit
// of work against the database.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	passwords   *password.Pool
	cache       revocationcache.Cache
	logger      logging.Logger
	tracer      trace.Tracer
	newJTI      func() string
	opts        Options
}

// NewTokenService wires the service. A nil cache disables the revocation
// mirror. codec and passwords may be nil when only RevokeAll is used.
func NewTokenService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	codec *auth.Codec,
	passwords *password.Pool,
	cache revocationcache.Cache,
	logger logging.Logger,
	opts Options,
) *TokenService {
	if cache == nil {
		cache = revocationcache.Noop{}
	}
	return &TokenService{
		db:          db,
		repomanager: m,
		codec:       codec,
		passwords:   passwords,
		cache:       cache,
		logger:      logger.With("module", "services.token"),
		tracer:      otel.Tracer(tracerName),
		newJTI:      uuid.NewString,
		opts:        opts,
	}
}

// Authenticate checks username (or email) and password. A missing user and
// a wrong password are indistinguishable to the caller.
func (s *TokenService) Authenticate(ctx context.Context, username, pw string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.Authenticate")
	defer span.End()

	user, err := s.repomanager.Users(s.db).GetByLogin(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "user lookup failed", "error", err)
		}
		return nil, s.fail(ctx, span, common.ErrInvalidCredentials)
	}

	if !user.IsActive {
		return nil, s.fail(ctx, span, common.ErrNotActive)
	}

	ok, err := s.passwords.Verify(ctx, pw, user.HashedPassword)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	if !ok {
		return nil, s.fail(ctx, span, common.ErrInvalidCredentials)
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	return user, nil
}

// Register creates an active user. Taken usernames or emails yield
// common.ErrUserAlreadyExists.
func (s *TokenService) Register(ctx context.Context, email, username, pw string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.Register")
	defer span.End()

	hash, err := s.passwords.Hash(ctx, pw)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		IsActive:       true,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, s.fail(ctx, span, common.ErrUserAlreadyExists)
		}
		return nil, s.fail(ctx, span, err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Issue mints a new pair for user and records the refresh token in the
// ledger. Nothing is persisted if any step fails.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.Issue")
	defer span.End()

	pair, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		return s.issue(ctx, tx, user)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	return pair, nil
}

// Rotate exchanges a valid, unrevoked refresh token for a new pair.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.Rotate")
	defer span.End()

	claims, err := s.codec.Decode(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	span.SetAttributes(attribute.Int64("user.id", userID), attribute.String("token.jti", claims.ID))

	if s.revokedInCache(ctx, claims.ID) {
		return nil, s.fail(ctx, span, common.ErrTokenRevoked)
	}

	pair, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		ledger := s.repomanager.RefreshTokens(tx)

		rec, err := ledger.Find(ctx, claims.ID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			// signed by us but never recorded; only RevokeOnRotate refuses it below
		case err != nil:
			return nil, err
		case rec.Revoked:
			return nil, common.ErrTokenRevoked
		}

		if s.opts.RevokeOnRotate {
			flipped, err := ledger.MarkRevoked(ctx, claims.ID)
			if err != nil {
				return nil, err
			}
			if !flipped {
				return nil, common.ErrTokenRevoked
			}
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrUserNotFound
			}
			return nil, err
		}
		if !user.IsActive {
			return nil, common.ErrNotActive
		}

		return s.issue(ctx, tx, user)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	if s.opts.RevokeOnRotate {
		s.mirror(ctx, revocationcache.Entry{JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time})
	}
	return pair, nil
}

// RevokeByToken revokes a single refresh token owned by userID. Tokens that
// cannot be decoded (expired, malformed, wrong type) or that belong to
// another user are ignored: logout always succeeds from the caller's point
// of view.
func (s *TokenService) RevokeByToken(ctx context.Context, userID int64, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "TokenService.RevokeByToken")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	claims, err := s.codec.Decode(refreshToken, auth.RefreshToken)
	if err != nil {
		s.logger.Info(ctx, "logout with unusable refresh token", "reason", err.Error())
		return nil
	}
	// the ledger row is written with the token's subject, so matching sub
	// is matching the row owner
	owner, err := claims.UserID()
	if err != nil || owner != userID {
		s.logger.Warn(ctx, "logout with foreign refresh token", "user_id", userID, "jti", claims.ID)
		return nil
	}

	flipped, err := s.repomanager.RefreshTokens(s.db).MarkRevoked(ctx, claims.ID)
	if err != nil {
		return s.fail(ctx, span, err)
	}
	if flipped {
		s.mirror(ctx, revocationcache.Entry{JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time})
	}
	s.logger.Info(ctx, "refresh token revoked", "jti", claims.ID, "changed", flipped)
	return nil
}

// RevokeAll revokes every active refresh token of userID and returns how
// many were revoked. Already issued access tokens stay valid until expiry.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.RevokeAll")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	var active []models.RefreshToken
	n, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		ledger := s.repomanager.RefreshTokens(tx)
		var err error
		if active, err = ledger.ListActive(ctx, userID); err != nil {
			return 0, err
		}
		return ledger.MarkAllRevoked(ctx, userID)
	})
	if err != nil {
		return 0, s.fail(ctx, span, err)
	}

	entries := make([]revocationcache.Entry, 0, len(active))
	for _, t := range active {
		entries = append(entries, revocationcache.Entry{JTI: t.JTI, ExpiresAt: t.ExpiresAt})
	}
	s.mirror(ctx, entries...)

	s.logger.Info(ctx, "all refresh tokens revoked", "user_id", userID, "count", n)
	return n, nil
}

// VerifyAccess decodes an access token. Access tokens are never looked up in
// the ledger.
func (s *TokenService) VerifyAccess(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.codec.Decode(accessToken, auth.AccessToken)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// CurrentUser loads the account behind an access token. Deleted accounts
// yield common.ErrUserNotFound and deactivated ones common.ErrNotActive.
func (s *TokenService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}
	if !user.IsActive {
		return nil, common.ErrNotActive
	}
	return user, nil
}

func (s *TokenService) issue(ctx context.Context, tx dbx.DBTX, user *models.User) (*TokenPair, error) {
	sub := strconv.FormatInt(user.ID, 10)

	access := auth.Claims{Type: auth.AccessToken, Username: user.Username, Email: user.Email}
	access.Subject, access.ID = sub, s.newJTI()
	accessToken, _, err := s.codec.Encode(access, s.codec.TTL(auth.AccessToken))
	if err != nil {
		return nil, err
	}

	refresh := auth.Claims{Type: auth.RefreshToken}
	refresh.Subject, refresh.ID = sub, s.newJTI()
	// the ledger keeps the exact exp that was signed
	refreshToken, expiresAt, err := s.codec.Encode(refresh, s.codec.TTL(auth.RefreshToken))
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.RefreshTokens(tx).Insert(ctx, refresh.ID, user.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("record refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: common.TokenTypeBearer}, nil
}

// revokedInCache treats cache failures as a miss; the ledger is checked
// either way.
func (s *TokenService) revokedInCache(ctx context.Context, jti string) bool {
	revoked, err := s.cache.IsRevoked(ctx, jti)
	if err != nil {
		s.logger.Warn(ctx, "revocation cache lookup failed", "error", err)
		return false
	}
	return revoked
}

func (s *TokenService) mirror(ctx context.Context, entries ...revocationcache.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := s.cache.MarkRevoked(ctx, entries...); err != nil {
		s.logger.Warn(ctx, "revocation cache update failed", "count", len(entries), "error", err)
	}
}

// fail classifies err, logs unexpected causes and marks the span.
func (s *TokenService) fail(ctx context.Context, span trace.Span, err error) error {
	kind := classify(err)
	if kind == common.ErrorInternal {
		s.logger.Error(ctx, "token operation failed", "error", err)
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, kind.Error())
	return kind
}

// publicKinds are the errors callers may see. Anything else is reported as
// common.ErrorInternal.
var publicKinds = []error{
	common.ErrInvalidCredentials,
	common.ErrNotActive,
	common.ErrUserNotFound,
	common.ErrUserAlreadyExists,
	common.ErrPasswordTooLong,
	common.ErrTokenExpired,
	common.ErrTokenMalformed,
	common.ErrTokenTypeMismatch,
	common.ErrTokenRevoked,
}

func classify(err error) error {
	for _, k := range publicKinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return common.ErrorInternal
}
