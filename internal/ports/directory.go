package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/domain"
)

// CreateUserParams captures the inputs for a new account row.
// The verification token hash is set at creation so registration and token
// issuance cannot diverge.
type CreateUserParams struct {
	Email                 string
	Name                  string
	PasswordHash          string
	Role                  string
	VerificationTokenHash string
	CreatedAt             time.Time
}

// LockoutState is the failure counter snapshot after a guard update.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// UserDirectory is the durable account store. Lockout bookkeeping methods are
// single atomic statements so concurrent failed logins cannot lose updates.
type UserDirectory interface {
	Create(ctx context.Context, params CreateUserParams) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)

	RecordLoginFailure(ctx context.Context, userID uuid.UUID, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	RecordLoginSuccess(ctx context.Context, userID uuid.UUID, at time.Time) error

	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error
	// ConsumeResetToken clears a live reset token and returns its owner.
	// Single use is enforced by the clearing update itself.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
	// ConsumeVerificationToken clears the token and marks the email verified in
	// one statement.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
}
