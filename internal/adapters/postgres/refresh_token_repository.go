package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func (r *refreshTokenRepository) Store(ctx context.Context, params ports.StoreRefreshTokenParams) (domain.RefreshTokenRecord, error) {
	rec := refreshTokenModel{
		UserID:    params.UserID,
		TokenHash: params.TokenHash,
		DeviceID:  params.DeviceID,
		IPAddress: nullableString(params.IPAddress),
		UserAgent: params.UserAgent,
		CreatedAt: params.CreatedAt,
		ExpiresAt: params.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.RefreshTokenRecord{}, err
	}
	return toDomainRefreshToken(rec), nil
}

func (r *refreshTokenRepository) Lookup(ctx context.Context, tokenHash string) (domain.RefreshTokenRecord, error) {
	var rec refreshTokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RefreshTokenRecord{}, domain.ErrNotFound
		}
		return domain.RefreshTokenRecord{}, err
	}
	return toDomainRefreshToken(rec), nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ?", tokenHash).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Rotate revokes the old row and inserts its replacement in one transaction.
// The revoking update is conditional on the row still being live, which is
// the compare-and-swap that serializes concurrent rotations of one token:
// the racer whose update matches zero rows gets ErrRefreshNotRecognized.
func (r *refreshTokenRepository) Rotate(ctx context.Context, oldTokenHash, newTokenHash string, newExpiresAt, now time.Time) (domain.RefreshTokenRecord, error) {
	var out domain.RefreshTokenRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old refreshTokenModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", oldTokenHash).
			Take(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRefreshNotRecognized
			}
			return err
		}

		res := tx.Model(&refreshTokenModel{}).
			Where("token_id = ?", old.TokenID).
			Where("revoked_at IS NULL").
			Where("expires_at > ?", now).
			Update("revoked_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRefreshNotRecognized
		}

		rec := refreshTokenModel{
			UserID:    old.UserID,
			TokenHash: newTokenHash,
			DeviceID:  old.DeviceID,
			IPAddress: old.IPAddress,
			UserAgent: old.UserAgent,
			CreatedAt: now,
			ExpiresAt: newExpiresAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		out = toDomainRefreshToken(rec)
		return nil
	})
	if err != nil {
		return domain.RefreshTokenRecord{}, err
	}
	return out, nil
}

func (r *refreshTokenRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.RefreshTokenRecord, error) {
	var rows []refreshTokenModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.RefreshTokenRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainRefreshToken(row))
	}
	return result, nil
}

// RevokeByID scopes the update to the owning user, so revoking someone
// else's row reads as not found.
func (r *refreshTokenRepository) RevokeByID(ctx context.Context, userID, recordID uuid.UUID, revokedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_id = ?", recordID).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt).Error
}

func (r *refreshTokenRepository) PurgeDead(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Or("revoked_at < ?", before).
		Delete(&refreshTokenModel{})
	return res.RowsAffected, res.Error
}
