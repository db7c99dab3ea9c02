package application

import (
	"time"

	"github.com/google/uuid"
)

// Config carries the policy knobs for the authentication flows. Bootstrap
// fills it from service configuration; tests set only what they exercise and
// rely on NewService to default the rest.
type Config struct {
	// DefaultRole is assigned when a registration does not name a role.
	DefaultRole string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	ResetTokenTTL time.Duration

	OTPTTL           time.Duration
	ClientSessionTTL time.Duration

	// FailedLoginThreshold is the consecutive-failure count at which an
	// account is locked for LockoutDuration.
	FailedLoginThreshold int
	LockoutDuration      time.Duration

	// RequireVerifiedEmail rejects logins from accounts that have not
	// confirmed their address. Off by default.
	RequireVerifiedEmail bool
}

const (
	defaultRole                 = "client"
	defaultAccessTokenTTL       = 15 * time.Minute
	defaultRefreshTokenTTL      = 7 * 24 * time.Hour
	defaultResetTokenTTL        = time.Hour
	defaultOTPTTL               = 5 * time.Minute
	defaultClientSessionTTL     = 24 * time.Hour
	defaultFailedLoginThreshold = 5
	defaultLockoutDuration      = 15 * time.Minute
)

// RequestMeta is caller context recorded alongside security-relevant
// operations. The HTTP layer fills it from the request; it never influences
// authorization decisions.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	DeviceID  string
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId,omitempty"`
}

// TokenPair is one issued access/refresh pair. ExpiresIn is the access token
// lifetime in seconds, for clients that schedule their own refreshes.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type LoginResponse struct {
	User PublicUser `json:"user"`
	TokenPair
}

// PublicUser is the account projection safe to return to callers. It never
// carries the password hash or recovery token material.
type PublicUser struct {
	UserID        uuid.UUID  `json:"userId"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type CurrentUserResponse struct {
	User        PublicUser `json:"user"`
	Permissions []string   `json:"permissions"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"password"`
}

// SessionItem is one live refresh-token row, as shown to its owner.
type SessionItem struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  string    `json:"deviceId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RequestOTPResponse acknowledges a portal passcode request. Code is set only
// in development mode, when no mail transport is configured.
type RequestOTPResponse struct {
	Success   bool      `json:"success"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Code      string    `json:"otp,omitempty"`
}

type VerifyOTPResponse struct {
	Success   bool      `json:"success"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CheckAuthResponse struct {
	Authenticated bool       `json:"authenticated"`
	Email         string     `json:"email,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// AuditEventItem is one audit row as returned by the review endpoint.
type AuditEventItem struct {
	ID        int64          `json:"id"`
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	Email     string         `json:"email,omitempty"`
	Action    string         `json:"action"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	DeviceID  string         `json:"deviceId,omitempty"`
	Success   bool           `json:"success"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
