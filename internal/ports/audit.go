package ports

import (
	"context"
	"time"

	"github.com/servicedeskhq/auth-service/internal/domain"
)

// AuditSink is the append-only log of authentication events.
// Writes are best-effort from the flows' perspective; the sink itself must
// never mutate or delete entries outside of retention purges.
type AuditSink interface {
	Append(ctx context.Context, event domain.AuditEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error)
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}
