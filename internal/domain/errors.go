package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	// LockoutError wraps this sentinel and carries the unlock timestamp.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidRefreshToken covers cryptographic refresh failures: bad signature,
	// wrong token type, expired claims.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshNotRecognized covers ledger refresh failures. One message for
	// revoked, rotated, and never-stored tokens keeps the signal coarse.
	ErrRefreshNotRecognized = errors.New("refresh token not found or revoked")
	// ErrPasswordMismatch is the change-password "current password incorrect" case,
	// kept distinct from ErrInvalidInput so handlers map it to 401 instead of 400.
	ErrPasswordMismatch = errors.New("current password is incorrect")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	// ErrOTPNotFound means no live passcode exists for the email, including the
	// already-consumed case.
	ErrOTPNotFound = errors.New("no passcode requested for this email")
	ErrOTPExpired  = errors.New("passcode expired")
	ErrOTPMismatch = errors.New("incorrect passcode")
	// ErrMailDelivery surfaces outbound email transport failures on flows where
	// the email is the only recovery path.
	ErrMailDelivery = errors.New("email delivery failed")
)

// LockoutError carries the unlock timestamp alongside the ErrAccountLocked
// sentinel so handlers can include it in the response payload.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }
