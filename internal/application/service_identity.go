package application

import (
	"context"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// CurrentUser resolves the token's subject against the directory and returns
// the public projection plus the role's capability list. A token whose
// account has since been deleted reads as not found, not unauthorized.
func (s *Service) CurrentUser(ctx context.Context, claims ports.TokenClaims) (CurrentUserResponse, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return CurrentUserResponse{}, err
	}

	return CurrentUserResponse{
		User:        toPublicUser(user),
		Permissions: domain.PermissionsForRole(user.Role),
	}, nil
}

// ListAuditEvents returns the newest audit entries for security review.
// Requires the audit:read capability, which only managers hold.
func (s *Service) ListAuditEvents(ctx context.Context, claims ports.TokenClaims, limit int) ([]AuditEventItem, error) {
	if !domain.RoleHasPermission(claims.Role, "audit:read") {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	events, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := make([]AuditEventItem, 0, len(events))
	for _, event := range events {
		result = append(result, AuditEventItem{
			ID:        event.ID,
			UserID:    event.UserID,
			Email:     event.Email,
			Action:    string(event.Action),
			IPAddress: event.IPAddress,
			UserAgent: event.UserAgent,
			DeviceID:  event.DeviceID,
			Success:   event.Success,
			Details:   event.Details,
			CreatedAt: event.CreatedAt,
		})
	}
	return result, nil
}
