package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// LoginGuard enforces the brute-force lockout policy. State lives on the
// user row, so counters and lock timestamps survive restarts, unlike the
// portal's in-memory passcode state.
type LoginGuard struct {
	users     ports.UserDirectory
	threshold int
	window    time.Duration
}

// CheckLockout reports whether the account may attempt a credential check.
// Evaluated before password comparison; a locked account never reaches the
// hasher.
func (g *LoginGuard) CheckLockout(user domain.User, now time.Time) error {
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return &domain.LockoutError{Until: *user.LockedUntil}
	}
	return nil
}

// RecordFailure bumps the consecutive-failure counter and returns the updated
// state. Crossing the threshold sets the lock timestamp in the same statement,
// so concurrent failures cannot both observe the pre-lock count.
func (g *LoginGuard) RecordFailure(ctx context.Context, userID uuid.UUID, now time.Time) (ports.LockoutState, error) {
	return g.users.RecordLoginFailure(ctx, userID, now, g.threshold, g.window)
}

// RecordSuccess clears the counter and any lock, and stamps last-login.
func (g *LoginGuard) RecordSuccess(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return g.users.RecordLoginSuccess(ctx, userID, at)
}
