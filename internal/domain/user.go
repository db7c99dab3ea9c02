package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical account record persisted by the directory.
// Lockout counters and one-time token hashes live on the row itself so they
// survive process restarts.
type User struct {
	UserID                uuid.UUID
	Email                 string
	Name                  string
	PasswordHash          string
	Role                  string
	IsActive              bool
	EmailVerified         bool
	VerificationTokenHash *string
	ResetTokenHash        *string
	ResetTokenExpiresAt   *time.Time
	FailedLoginCount      int
	LockedUntil           *time.Time
	LastLoginAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// RefreshTokenRecord is one ledger row backing a signed refresh token.
// The raw token is never stored; TokenHash keys the row. A token is usable
// only while RevokedAt is nil and ExpiresAt is in the future.
type RefreshTokenRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	DeviceID  string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// AuditAction enumerates the security-relevant outcomes written to the sink.
type AuditAction string

const (
	AuditRegister               AuditAction = "register"
	AuditLogin                  AuditAction = "login"
	AuditFailedLogin            AuditAction = "failed_login"
	AuditLogout                 AuditAction = "logout"
	AuditPasswordResetRequested AuditAction = "password_reset_requested"
	AuditPasswordResetCompleted AuditAction = "password_reset_completed"
	AuditPasswordChanged        AuditAction = "password_changed"
)

// AuditEvent is one append-only entry in the audit sink.
type AuditEvent struct {
	ID        int64
	UserID    *uuid.UUID
	Email     string
	Action    AuditAction
	IPAddress string
	UserAgent string
	DeviceID  string
	Success   bool
	Details   map[string]any
	CreatedAt time.Time
}
