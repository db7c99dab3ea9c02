package http

import (
	"net/http"
)

func (h *Handler) auditEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "audit_events")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
	items, err := h.service.ListAuditEvents(r.Context(), claims, limit)
	if err != nil {
		writeMappedError(r.Context(), w, "audit_events", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": items})
}
