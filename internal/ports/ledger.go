package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/domain"
)

// StoreRefreshTokenParams captures a new ledger row. Device metadata is stored
// for session listings and audit, never for validation.
type StoreRefreshTokenParams struct {
	UserID    uuid.UUID
	TokenHash string
	DeviceID  string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RefreshTokenLedger is the server-side record of issued refresh tokens.
// A signed token is only as valid as its ledger row: revocation and rotation
// happen here, not in the codec.
type RefreshTokenLedger interface {
	Store(ctx context.Context, params StoreRefreshTokenParams) (domain.RefreshTokenRecord, error)
	Lookup(ctx context.Context, tokenHash string) (domain.RefreshTokenRecord, error)
	// Revoke marks a live row revoked. Revoking an unknown or already-revoked
	// row returns domain.ErrNotFound.
	Revoke(ctx context.Context, tokenHash string, revokedAt time.Time) error
	// Rotate revokes the old row and inserts the replacement in one transaction,
	// copying the old row's device metadata. The revocation is conditional on the
	// row still being live, so of two concurrent rotations of the same token
	// exactly one succeeds; the loser gets domain.ErrRefreshNotRecognized.
	Rotate(ctx context.Context, oldTokenHash, newTokenHash string, newExpiresAt, now time.Time) (domain.RefreshTokenRecord, error)

	ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.RefreshTokenRecord, error)
	RevokeByID(ctx context.Context, userID, recordID uuid.UUID, revokedAt time.Time) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) error
	// PurgeDead deletes rows that are expired or were revoked before the cutoff.
	PurgeDead(ctx context.Context, before time.Time) (int64, error)
}
