package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "list_sessions")
		return
	}
	items, err := h.service.ListSessions(r.Context(), claims)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": items})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "revoke_session")
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "revoke_session", err)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeValidationError(r.Context(), w, "revoke_session", errors.New("invalid sessionId"))
		return
	}

	if err := h.service.RevokeSessionByID(r.Context(), claims, sessionID); err != nil {
		writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session revoked successfully")
}

func (h *Handler) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "revoke_all_sessions")
		return
	}
	if err := h.service.RevokeAllSessions(r.Context(), claims); err != nil {
		writeMappedError(r.Context(), w, "revoke_all_sessions", err)
		return
	}
	h.clearAuthCookies(w)
	writeMessage(w, http.StatusOK, "All sessions revoked successfully")
}
