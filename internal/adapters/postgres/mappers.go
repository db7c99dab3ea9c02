package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:                row.UserID,
		Email:                 row.Email,
		Name:                  row.Name,
		PasswordHash:          row.PasswordHash,
		Role:                  row.Role,
		IsActive:              row.IsActive,
		EmailVerified:         row.EmailVerified,
		VerificationTokenHash: row.VerificationTokenHash,
		ResetTokenHash:        row.ResetTokenHash,
		ResetTokenExpiresAt:   row.ResetTokenExpiresAt,
		FailedLoginCount:      row.FailedLoginCount,
		LockedUntil:           row.LockedUntil,
		LastLoginAt:           row.LastLoginAt,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}

func toDomainRefreshToken(row refreshTokenModel) domain.RefreshTokenRecord {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.RefreshTokenRecord{
		ID:        row.TokenID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		DeviceID:  row.DeviceID,
		IPAddress: ip,
		UserAgent: row.UserAgent,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		RevokedAt: row.RevokedAt,
	}
}

func toDomainAuditEvent(row auditEventModel) domain.AuditEvent {
	event := domain.AuditEvent{
		ID:        row.ID,
		UserID:    row.UserID,
		Email:     row.Email,
		Action:    domain.AuditAction(row.Action),
		UserAgent: row.UserAgent,
		Success:   row.Success,
		CreatedAt: row.CreatedAt,
	}
	if row.IPAddress != nil {
		event.IPAddress = *row.IPAddress
	}
	if row.DeviceID != nil {
		event.DeviceID = *row.DeviceID
	}
	if row.Details != nil && *row.Details != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(*row.Details), &details); err == nil {
			event.Details = details
		}
	}
	return event
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
