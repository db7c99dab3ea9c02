package ports

import "context"

// Mailer is the outbound email transport. Implementations must bound delivery
// time; a timeout counts as a delivery failure.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
	SendOTPEmail(ctx context.Context, to, code string) error
	// Configured reports whether a real transport is wired. When false the OTP
	// flow runs in development mode and returns codes in the response.
	Configured() bool
}
