package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

func (h *Handler) tokenCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) setTokenCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, h.tokenCookie(common.AccessTokenCookieName, pair.AccessToken, h.opts.AccessTTL))
	http.SetCookie(w, h.tokenCookie(common.RefreshTokenCookieName, pair.RefreshToken, h.opts.RefreshTTL))
}

// clearTokenCookies expires both cookies in the browser.
func (h *Handler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := h.tokenCookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}
