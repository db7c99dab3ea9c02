package http

import (
	"net/http"
)

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "request_otp", err)
		return
	}

	res, err := h.service.RequestOTP(r.Context(), req.Email)
	if err != nil {
		writeMappedError(r.Context(), w, "request_otp", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_otp", err)
		return
	}

	res, err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_otp", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) checkAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_auth", err)
		return
	}

	res, err := h.service.CheckPortalSession(r.Context(), req.Email)
	if err != nil {
		writeMappedError(r.Context(), w, "check_auth", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
