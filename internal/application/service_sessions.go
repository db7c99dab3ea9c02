package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// ListSessions returns the caller's live refresh-token rows: every device
// that can still mint access tokens.
func (s *Service) ListSessions(ctx context.Context, claims ports.TokenClaims) ([]SessionItem, error) {
	rows, err := s.ledger.ListActiveByUser(ctx, claims.UserID, s.nowFn())
	if err != nil {
		return nil, err
	}

	result := make([]SessionItem, 0, len(rows))
	for _, row := range rows {
		result = append(result, SessionItem{
			ID:        row.ID,
			DeviceID:  row.DeviceID,
			IPAddress: row.IPAddress,
			UserAgent: row.UserAgent,
			CreatedAt: row.CreatedAt,
			ExpiresAt: row.ExpiresAt,
		})
	}
	return result, nil
}

// RevokeSessionByID revokes one of the caller's own refresh-token rows.
// The ownership check lives in the ledger query, so a foreign row reads as
// not found rather than forbidden.
func (s *Service) RevokeSessionByID(ctx context.Context, claims ports.TokenClaims, sessionID uuid.UUID) error {
	return s.ledger.RevokeByID(ctx, claims.UserID, sessionID, s.nowFn())
}

// RevokeAllSessions revokes every live refresh token of the caller. The
// current access token keeps working until it expires; only refreshes stop.
func (s *Service) RevokeAllSessions(ctx context.Context, claims ports.TokenClaims) error {
	return s.ledger.RevokeAllByUser(ctx, claims.UserID, s.nowFn())
}
