package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// appendAudit records one security event. Audit writes are best-effort: a
// sink failure is logged and never fails the calling flow.
func (s *Service) appendAudit(ctx context.Context, event domain.AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.nowFn()
	}
	if err := s.audit.Append(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "failed to append audit event",
			"service", "auth-service",
			"module", "application",
			"layer", "application",
			"operation", "append_audit",
			"outcome", "failure",
			"action", event.Action,
			"error", err,
		)
	}
}

// issueTokenPair signs an access/refresh pair and records the refresh token
// in the ledger. Only the SHA-256 hash of the refresh token is stored.
func (s *Service) issueTokenPair(ctx context.Context, user domain.User, meta RequestMeta, now time.Time) (TokenPair, error) {
	deviceID := strings.TrimSpace(meta.DeviceID)
	if deviceID == "" {
		deviceID = "unknown"
	}

	claims := ports.TokenClaims{
		UserID:   user.UserID,
		Email:    user.Email,
		Role:     user.Role,
		DeviceID: deviceID,
		IssuedAt: now,
	}

	claims.ExpiresAt = now.Add(s.cfg.AccessTokenTTL)
	accessToken, err := s.codec.IssueAccess(claims)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	claims.ExpiresAt = now.Add(s.cfg.RefreshTokenTTL)
	refreshToken, err := s.codec.IssueRefresh(claims)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	if _, err := s.ledger.Store(ctx, ports.StoreRefreshTokenParams{
		UserID:    user.UserID,
		TokenHash: hashToken(refreshToken),
		DeviceID:  deviceID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func toPublicUser(user domain.User) PublicUser {
	return PublicUser{
		UserID:        user.UserID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		LastLoginAt:   user.LastLoginAt,
		CreatedAt:     user.CreatedAt,
	}
}

// normalizeEmail canonicalizes and validates email format before persistence
// or comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashToken stores one-way token fingerprints instead of raw secrets.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

// randomDigits returns a zero-padded random numeric code.
func randomDigits(size int) string {
	if size <= 0 {
		size = 6
	}
	max := 1
	for i := 0; i < size; i++ {
		max *= 10
	}
	nRaw := make([]byte, 8)
	_, _ = rand.Read(nRaw)
	n := int(nRaw[0])<<24 | int(nRaw[1])<<16 | int(nRaw[2])<<8 | int(nRaw[3])
	if n < 0 {
		n = -n
	}
	value := n % max
	return fmt.Sprintf("%0*d", size, value)
}

func auditDetail(pairs ...any) map[string]any {
	details := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		details[key] = pairs[i+1]
	}
	return details
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
