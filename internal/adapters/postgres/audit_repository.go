package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) Append(ctx context.Context, event domain.AuditEvent) error {
	rec := auditEventModel{
		UserID:    event.UserID,
		Email:     event.Email,
		Action:    string(event.Action),
		IPAddress: nullableString(event.IPAddress),
		UserAgent: event.UserAgent,
		DeviceID:  nullableString(event.DeviceID),
		Success:   event.Success,
		CreatedAt: event.CreatedAt,
	}
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err == nil {
			details := string(raw)
			rec.Details = &details
		}
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	var rows []auditEventModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainAuditEvent(row))
	}
	return result, nil
}

func (r *auditRepository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&auditEventModel{})
	return res.RowsAffected, res.Error
}
