// Package httpapi exposes the token lifecycle over HTTP. Tokens travel in
// HttpOnly cookies; the JSON bodies mirror them for non-browser clients.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// TokenService is the part of services.TokenService the handlers use.
type TokenService interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Issue(ctx context.Context, user *models.User) (*services.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	RevokeByToken(ctx context.Context, userID int64, refreshToken string) error
	RevokeAll(ctx context.Context, userID int64) (int64, error)
	VerifyAccess(ctx context.Context, accessToken string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, userID int64) (*models.User, error)
}

// Options tune cookie and CORS behaviour.
type Options struct {
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	SecureCookies  bool
	AllowedOrigins []string
}

type Handler struct {
	tokens TokenService
	logger logging.Logger
	opts   Options
}

func NewHandler(tokens TokenService, logger logging.Logger, opts Options) *Handler {
	return &Handler{
		tokens: tokens,
		logger: logger.With("module", "httpapi"),
		opts:   opts,
	}
}

type authResponse struct {
	User   *models.User        `json:"user"`
	Tokens *services.TokenPair `json:"tokens"`
}

type logoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

// formValues returns the named form fields, failing with errBadForm when
// the body cannot be parsed or a field is empty.
func formValues(r *http.Request, names ...string) ([]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadForm, err)
	}
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = r.PostForm.Get(name)
		if values[i] == "" {
			return nil, fmt.Errorf("%w: %s is required", errBadForm, name)
		}
	}
	return values, nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	v, err := formValues(r, "email", "username", "password")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.tokens.Register(r.Context(), v[0], v[1], v[2])
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.tokens.Issue(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: pair})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	v, err := formValues(r, "username", "password")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.tokens.Authenticate(r.Context(), v[0], v[1])
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.tokens.Issue(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

// refreshToken reads the refresh_token cookie, falling back to a form field.
func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.PostFormValue("refresh_token")
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		writeError(w, common.ErrTokenMalformed)
		return
	}

	pair, err := h.tokens.Rotate(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

// Logout revokes the presented refresh token, if any, and clears both
// cookies. Unusable tokens and tokens of other users are not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if token := refreshToken(r); token != "" {
		if err := h.tokens.RevokeByToken(r.Context(), userID, token); err != nil {
			writeError(w, err)
			return
		}
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	n, err := h.tokens.RevokeAll(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, logoutAllResponse{Revoked: n})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.tokens.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing token"})
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		writeError(w, common.ErrTokenMalformed)
		return 0, false
	}
	return id, true
}
