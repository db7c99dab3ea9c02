package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// RequestOTP issues a 6-digit portal passcode for the email. Storing the new
// record overwrites any prior code for the address, so only the latest code
// can verify. Without a configured mail transport the service runs in
// development mode and returns the code in the response.
func (s *Service) RequestOTP(ctx context.Context, email string) (RequestOTPResponse, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return RequestOTPResponse{}, err
	}

	code := randomDigits(6)
	now := s.nowFn()
	record := ports.OTPRecord{
		Email:     normalized,
		Code:      code,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
	}
	if err := s.otps.Put(ctx, normalized, record, s.cfg.OTPTTL); err != nil {
		return RequestOTPResponse{}, fmt.Errorf("store passcode: %w", err)
	}

	resp := RequestOTPResponse{
		Success:   true,
		Email:     normalized,
		ExpiresAt: record.ExpiresAt,
	}

	if !s.mailer.Configured() {
		slog.Default().WarnContext(ctx, "mail transport not configured, returning passcode in response",
			"service", "auth-service",
			"module", "application",
			"layer", "application",
			"operation", "request_otp",
			"outcome", "dev_mode",
		)
		resp.Code = code
		return resp, nil
	}

	if err := s.mailer.SendOTPEmail(ctx, normalized, code); err != nil {
		return RequestOTPResponse{}, fmt.Errorf("%w: %v", domain.ErrMailDelivery, err)
	}
	return resp, nil
}

// VerifyOTP consumes the passcode and opens a portal session for the email.
// A correct code is spent by the check itself; a wrong code leaves the
// record in place for another try within the expiry window.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (VerifyOTPResponse, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return VerifyOTPResponse{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return VerifyOTPResponse{}, fmt.Errorf("%w: passcode is required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	if err := s.otps.Consume(ctx, normalized, code, now); err != nil {
		return VerifyOTPResponse{}, err
	}

	session := ports.ClientSession{
		Email:      normalized,
		VerifiedAt: now,
		ExpiresAt:  now.Add(s.cfg.ClientSessionTTL),
	}
	if err := s.portal.Put(ctx, normalized, session, s.cfg.ClientSessionTTL); err != nil {
		return VerifyOTPResponse{}, fmt.Errorf("store portal session: %w", err)
	}

	return VerifyOTPResponse{
		Success:   true,
		Email:     normalized,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// CheckPortalSession reports whether a live portal session exists for the
// email. Expired sessions read as absent; the store drops them on access.
func (s *Service) CheckPortalSession(ctx context.Context, email string) (CheckAuthResponse, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return CheckAuthResponse{}, err
	}

	session, err := s.portal.Get(ctx, normalized, s.nowFn())
	if err != nil {
		return CheckAuthResponse{}, err
	}
	if session == nil {
		return CheckAuthResponse{Authenticated: false}, nil
	}
	expires := session.ExpiresAt
	return CheckAuthResponse{
		Authenticated: true,
		Email:         session.Email,
		ExpiresAt:     &expires,
	}, nil
}
