package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID                uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email                 string     `gorm:"column:email"`
	Name                  string     `gorm:"column:name"`
	PasswordHash          string     `gorm:"column:password_hash"`
	Role                  string     `gorm:"column:role"`
	IsActive              bool       `gorm:"column:is_active"`
	EmailVerified         bool       `gorm:"column:email_verified"`
	VerificationTokenHash *string    `gorm:"column:verification_token_hash"`
	ResetTokenHash        *string    `gorm:"column:reset_token_hash"`
	ResetTokenExpiresAt   *time.Time `gorm:"column:reset_token_expires_at"`
	FailedLoginCount      int        `gorm:"column:failed_login_count"`
	LockedUntil           *time.Time `gorm:"column:locked_until"`
	LastLoginAt           *time.Time `gorm:"column:last_login_at"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type refreshTokenModel struct {
	TokenID   uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	TokenHash string     `gorm:"column:token_hash"`
	DeviceID  string     `gorm:"column:device_id"`
	IPAddress *string    `gorm:"column:ip_address"`
	UserAgent string     `gorm:"column:user_agent"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type auditEventModel struct {
	ID        int64      `gorm:"column:id;primaryKey"`
	UserID    *uuid.UUID `gorm:"column:user_id"`
	Email     string     `gorm:"column:email"`
	Action    string     `gorm:"column:action"`
	IPAddress *string    `gorm:"column:ip_address"`
	UserAgent string     `gorm:"column:user_agent"`
	DeviceID  *string    `gorm:"column:device_id"`
	Success   bool       `gorm:"column:success"`
	Details   *string    `gorm:"column:details;type:jsonb"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (auditEventModel) TableName() string { return "audit_events" }
