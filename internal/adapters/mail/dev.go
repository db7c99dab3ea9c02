package mail

import (
	"context"
	"log/slog"
)

// DevMailer stands in when no SMTP host is configured. It logs instead of
// sending, and reports itself unconfigured so callers can fall back to
// returning codes in responses during local development.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (DevMailer) Configured() bool { return false }

func (DevMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	slog.Default().InfoContext(ctx, "verification email suppressed",
		"service", "auth-service",
		"module", "mail",
		"layer", "adapter",
		"operation", "send_verification_email",
		"outcome", "dev_mode",
		"to", to,
		"token", token,
	)
	return nil
}

func (DevMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	slog.Default().InfoContext(ctx, "password reset email suppressed",
		"service", "auth-service",
		"module", "mail",
		"layer", "adapter",
		"operation", "send_password_reset_email",
		"outcome", "dev_mode",
		"to", to,
		"token", token,
	)
	return nil
}

func (DevMailer) SendOTPEmail(ctx context.Context, to, code string) error {
	slog.Default().InfoContext(ctx, "otp email suppressed",
		"service", "auth-service",
		"module", "mail",
		"layer", "adapter",
		"operation", "send_otp_email",
		"outcome", "dev_mode",
		"to", to,
		"code", code,
	)
	return nil
}
