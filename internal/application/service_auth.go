package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// Register creates an unverified account and sends the verification email.
// Email delivery is best-effort here: verification is not enforced at login
// by default, so a mail outage must not block signups.
func (s *Service) Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return RegisterResponse{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
	}
	if role == "" {
		role = s.cfg.DefaultRole
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	verificationToken := randomHex(32)
	now := s.nowFn()
	user, err := s.users.Create(ctx, ports.CreateUserParams{
		Email:                 email,
		Name:                  strings.TrimSpace(req.Name),
		PasswordHash:          passwordHash,
		Role:                  role,
		VerificationTokenHash: hashToken(verificationToken),
		CreatedAt:             now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	if err := s.mailer.SendVerificationEmail(ctx, email, verificationToken); err != nil {
		slog.Default().WarnContext(ctx, "verification email not delivered",
			"service", "auth-service",
			"module", "application",
			"layer", "application",
			"operation", "register",
			"outcome", "warning",
			"error", err,
		)
	}

	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    uuidPtr(user.UserID),
		Email:     email,
		Action:    domain.AuditRegister,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
		Details:   auditDetail("role", role),
	})

	return RegisterResponse{UserID: user.UserID, Email: user.Email, Role: user.Role}, nil
}

// Login checks credentials under the lockout policy and issues a token pair.
// Unknown email, inactive account, and wrong password all collapse into the
// same generic error; only an already-locked account answers differently.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}
	if meta.DeviceID == "" {
		meta.DeviceID = strings.TrimSpace(req.DeviceID)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.auditLoginFailure(ctx, nil, email, meta, "unknown_email", nil)
			return LoginResponse{}, domain.ErrInvalidCredentials
		}
		return LoginResponse{}, err
	}

	now := s.nowFn()
	if !user.IsActive {
		s.auditLoginFailure(ctx, uuidPtr(user.UserID), email, meta, "account_disabled", nil)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	if err := s.guard.CheckLockout(user, now); err != nil {
		s.auditLoginFailure(ctx, uuidPtr(user.UserID), email, meta, "account_locked", auditDetail("lockedUntil", user.LockedUntil))
		return LoginResponse{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		state, guardErr := s.guard.RecordFailure(ctx, user.UserID, now)
		if guardErr != nil {
			slog.Default().ErrorContext(ctx, "failed to record login failure",
				"service", "auth-service",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "failure",
				"error", guardErr,
			)
		}
		details := auditDetail("failedCount", state.FailedCount)
		if state.LockedUntil != nil {
			details["lockedUntil"] = state.LockedUntil
		}
		s.auditLoginFailure(ctx, uuidPtr(user.UserID), email, meta, "wrong_password", details)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if s.cfg.RequireVerifiedEmail && !user.EmailVerified {
		s.auditLoginFailure(ctx, uuidPtr(user.UserID), email, meta, "email_unverified", nil)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.guard.RecordSuccess(ctx, user.UserID, now); err != nil {
		return LoginResponse{}, fmt.Errorf("clear lockout state: %w", err)
	}
	lastLogin := now
	user.LastLoginAt = &lastLogin

	pair, err := s.issueTokenPair(ctx, user, meta, now)
	if err != nil {
		return LoginResponse{}, err
	}

	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    uuidPtr(user.UserID),
		Email:     email,
		Action:    domain.AuditLogin,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		DeviceID:  meta.DeviceID,
		Success:   true,
		Details:   auditDetail("role", user.Role),
	})

	return LoginResponse{User: toPublicUser(user), TokenPair: pair}, nil
}

// Refresh rotates a refresh token. The presented token must verify
// cryptographically and have a live ledger row; the old row is revoked and
// the replacement inserted in one atomic step, so a concurrently replayed
// token loses the race instead of minting a second pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh token is required", domain.ErrInvalidInput)
	}

	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, domain.ErrInvalidRefreshToken
	}

	now := s.nowFn()
	oldHash := hashToken(refreshToken)
	row, err := s.ledger.Lookup(ctx, oldHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrRefreshNotRecognized
		}
		return TokenPair{}, err
	}
	if row.RevokedAt != nil || !row.ExpiresAt.After(now) {
		return TokenPair{}, domain.ErrRefreshNotRecognized
	}

	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(s.cfg.AccessTokenTTL)
	accessToken, err := s.codec.IssueAccess(claims)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	claims.ExpiresAt = now.Add(s.cfg.RefreshTokenTTL)
	newRefresh, err := s.codec.IssueRefresh(claims)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	if _, err := s.ledger.Rotate(ctx, oldHash, hashToken(newRefresh), now.Add(s.cfg.RefreshTokenTTL), now); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout revokes the presented refresh token, if any, and records the event.
// An unknown or already-revoked refresh token does not fail the logout; the
// caller's goal state is reached either way.
func (s *Service) Logout(ctx context.Context, claims ports.TokenClaims, refreshToken string, meta RequestMeta) error {
	if token := strings.TrimSpace(refreshToken); token != "" {
		if err := s.ledger.Revoke(ctx, hashToken(token), s.nowFn()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}

	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    uuidPtr(claims.UserID),
		Email:     claims.Email,
		Action:    domain.AuditLogout,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		DeviceID:  claims.DeviceID,
		Success:   true,
	})
	return nil
}

// Authenticate verifies an access token. Validity is purely cryptographic
// plus expiry; there is no server-side state to consult for access tokens.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (ports.TokenClaims, error) {
	claims, err := s.codec.VerifyAccess(strings.TrimSpace(accessToken))
	if err != nil {
		return ports.TokenClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *Service) auditLoginFailure(ctx context.Context, userID *uuid.UUID, email string, meta RequestMeta, reason string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	if _, ok := details["reason"]; !ok {
		details["reason"] = reason
	}
	s.appendAudit(ctx, domain.AuditEvent{
		UserID:    userID,
		Email:     email,
		Action:    domain.AuditFailedLogin,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		DeviceID:  meta.DeviceID,
		Success:   false,
		Details:   details,
	})
}
