package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenClaims is the adapter-neutral claim set carried by both token kinds.
type TokenClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	DeviceID  string    `json:"device_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenCodec signs and verifies the two token kinds with independent secrets.
// VerifyAccess must reject refresh tokens and vice versa even when signature
// and expiry check out; the kind discriminator travels inside the token.
type TokenCodec interface {
	IssueAccess(claims TokenClaims) (string, error)
	IssueRefresh(claims TokenClaims) (string, error)
	VerifyAccess(token string) (TokenClaims, error)
	VerifyRefresh(token string) (TokenClaims, error)
	// DecodeUnverified extracts claims without signature or expiry checks.
	// Diagnostic use only, never for authorization.
	DecodeUnverified(token string) (TokenClaims, error)
}
