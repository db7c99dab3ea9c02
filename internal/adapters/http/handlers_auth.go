package http

import (
	"net/http"

	"github.com/servicedeskhq/auth-service/internal/application"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req, requestMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	meta := requestMeta(r)
	meta.DeviceID = req.DeviceID

	res, err := h.service.Login(r.Context(), req, meta)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	h.setAuthCookies(w, res.TokenPair)
	writeSuccess(w, http.StatusOK, res)
}

// refresh accepts the refresh token from the body or falls back to the
// refresh cookie, so both API clients and cookie-only browser clients can
// rotate.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, "refresh", err)
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}

	h.setAuthCookies(w, pair)
	writeSuccess(w, http.StatusOK, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "logout")
		return
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, "logout", err)
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}

	if err := h.service.Logout(r.Context(), claims, req.RefreshToken, requestMeta(r)); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}

	h.clearAuthCookies(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "current_user")
		return
	}

	res, err := h.service.CurrentUser(r.Context(), claims)
	if err != nil {
		writeMappedError(r.Context(), w, "current_user", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
