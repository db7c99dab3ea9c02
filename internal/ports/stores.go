package ports

import (
	"context"
	"time"
)

// OTPRecord is a live one-time passcode for a portal email. The stored expiry
// is authoritative: store TTLs only bound memory, they do not define validity.
type OTPRecord struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPStore holds at most one live passcode per email. Put overwrites any prior
// record, which is how a re-request invalidates the previous code.
type OTPStore interface {
	Put(ctx context.Context, email string, record OTPRecord, ttl time.Duration) error
	Get(ctx context.Context, email string) (*OTPRecord, error)
	// Consume verifies and deletes in one atomic step. Outcomes:
	// nil and the record was deleted; domain.ErrOTPNotFound when no record
	// exists; domain.ErrOTPExpired when expired (record deleted);
	// domain.ErrOTPMismatch when the code differs (record retained).
	Consume(ctx context.Context, email, code string, now time.Time) error
	Delete(ctx context.Context, email string) error
}

// ClientSession is a verified portal session keyed by email.
type ClientSession struct {
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ClientSessionStore holds portal sessions. Get lazily deletes an expired
// session and reports it absent.
type ClientSessionStore interface {
	Put(ctx context.Context, email string, session ClientSession, ttl time.Duration) error
	Get(ctx context.Context, email string, now time.Time) (*ClientSession, error)
	Delete(ctx context.Context, email string) error
}
