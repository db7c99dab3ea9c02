package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// ChangePassword re-verifies the current password before accepting the new
// one. Existing refresh tokens stay valid; a password change is not a device
// eviction.
func (s *Service) ChangePassword(ctx context.Context, claims ports.TokenClaims, req ChangePasswordRequest, meta RequestMeta) error {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return domain.ErrPasswordMismatch
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	if err := s.users.UpdatePassword(ctx, user.UserID, passwordHash, now); err != nil {
		return err
	}

	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    uuidPtr(user.UserID),
		Email:     user.Email,
		Action:    domain.AuditPasswordChanged,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		DeviceID:  claims.DeviceID,
		Success:   true,
	})
	return nil
}

// RequestPasswordReset creates a one-time reset token when the account
// exists and emails it. Unknown addresses return success so callers cannot
// probe the directory; a failing mail transport does surface, because the
// email is the only way the token reaches its owner.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Default().InfoContext(ctx, "password reset requested for unknown email",
				"service", "auth-service",
				"module", "application",
				"layer", "application",
				"operation", "password_reset_request",
				"outcome", "noop",
			)
			return nil
		}
		return err
	}

	rawToken := randomHex(32)
	now := s.nowFn()
	if err := s.users.SetResetToken(ctx, user.UserID, hashToken(rawToken), now.Add(s.cfg.ResetTokenTTL), now); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, normalized, rawToken); err != nil {
		s.appendAudit(ctx, domain.AuditEvent{
			UserID:    uuidPtr(user.UserID),
			Email:     normalized,
			Action:    domain.AuditPasswordResetRequested,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Success:   false,
			Details:   auditDetail("reason", "mail_delivery"),
		})
		return fmt.Errorf("%w: %v", domain.ErrMailDelivery, err)
	}

	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    uuidPtr(user.UserID),
		Email:     normalized,
		Action:    domain.AuditPasswordResetRequested,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})
	return nil
}

// ResetPassword consumes a reset token and installs the new credential hash.
// The new password is validated before the token is consumed so a weak
// password does not burn the single-use token.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetRequest, meta RequestMeta) error {
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	userID, err := s.users.ConsumeResetToken(ctx, hashToken(req.Token), now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown or expired reset token", domain.ErrInvalidInput)
		}
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash, now); err != nil {
		return err
	}

	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    uuidPtr(userID),
		Action:    domain.AuditPasswordResetCompleted,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})
	return nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	if _, err := s.users.ConsumeVerificationToken(ctx, hashToken(token), s.nowFn()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown or expired verification token", domain.ErrInvalidInput)
		}
		return err
	}
	return nil
}
