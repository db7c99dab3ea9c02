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

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, params ports.CreateUserParams) (domain.User, error) {
	rec := userModel{
		Email:                 params.Email,
		Name:                  params.Name,
		PasswordHash:          params.PasswordHash,
		Role:                  params.Role,
		IsActive:              true,
		EmailVerified:         false,
		VerificationTokenHash: nullableString(params.VerificationTokenHash),
		CreatedAt:             params.CreatedAt,
		UpdatedAt:             params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// RecordLoginFailure bumps the failure counter and conditionally sets the
// lock in a single statement, so two racing failures both land and the
// threshold crossing cannot be missed.
func (r *userRepository) RecordLoginFailure(ctx context.Context, userID uuid.UUID, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	var row struct {
		FailedLoginCount int        `gorm:"column:failed_login_count"`
		LockedUntil      *time.Time `gorm:"column:locked_until"`
	}
	res := r.db.WithContext(ctx).Raw(`
		UPDATE users
		   SET failed_login_count = failed_login_count + 1,
		       locked_until = CASE
		           WHEN failed_login_count + 1 >= ? THEN ?
		           ELSE locked_until
		       END,
		       updated_at = ?
		 WHERE user_id = ?
		RETURNING failed_login_count, locked_until`,
		threshold, now.Add(lockoutWindow), now, userID,
	).Scan(&row)
	if res.Error != nil {
		return ports.LockoutState{}, res.Error
	}
	if res.RowsAffected == 0 {
		return ports.LockoutState{}, domain.ErrNotFound
	}
	return ports.LockoutState{
		FailedCount: row.FailedLoginCount,
		LockedUntil: row.LockedUntil,
	}, nil
}

func (r *userRepository) RecordLoginSuccess(ctx context.Context, userID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"failed_login_count": 0,
			"locked_until":       nil,
			"last_login_at":      at,
			"updated_at":         at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"reset_token_hash":       tokenHash,
			"reset_token_expires_at": expiresAt,
			"updated_at":             updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConsumeResetToken clears a live reset token under a row lock. The clearing
// update is what makes the token single-use; a second consume finds nothing.
func (r *userRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var rec userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reset_token_hash = ?", tokenHash).
			Where("reset_token_expires_at > ?", now).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		return tx.Model(&userModel{}).
			Where("user_id = ?", rec.UserID).
			Updates(map[string]any{
				"reset_token_hash":       nil,
				"reset_token_expires_at": nil,
				"updated_at":             now,
			}).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return rec.UserID, nil
}

// ConsumeVerificationToken clears the token and flips the verified flag in
// one update. Verification tokens have no expiry; single use is the control.
func (r *userRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var rec userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("verification_token_hash = ?", tokenHash).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		return tx.Model(&userModel{}).
			Where("user_id = ?", rec.UserID).
			Updates(map[string]any{
				"verification_token_hash": nil,
				"email_verified":          true,
				"updated_at":              now,
			}).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return rec.UserID, nil
}
