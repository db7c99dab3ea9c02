package http

import (
	"net/http"
	"time"

	"github.com/servicedeskhq/auth-service/internal/application"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// CookieConfig controls the attributes of the auth cookies. Secure should be
// on everywhere except plain-HTTP local development.
type CookieConfig struct {
	Secure     bool
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// setAuthCookies mirrors an issued token pair into HTTP-only cookies so
// browser clients never touch the tokens from script. SameSite is strict:
// the portal and the API share an origin.
func (h *Handler) setAuthCookies(w http.ResponseWriter, pair application.TokenPair) {
	h.setCookie(w, accessTokenCookie, pair.AccessToken, h.cookies.AccessTTL)
	h.setCookie(w, refreshTokenCookie, pair.RefreshToken, h.cookies.RefreshTTL)
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	h.setCookie(w, accessTokenCookie, "", -1)
	h.setCookie(w, refreshTokenCookie, "", -1)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.cookies.Secure,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}
