package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/servicedeskhq/auth-service/internal/ports"
)

// Janitor periodically deletes refresh-ledger rows that can no longer
// validate and audit events past their retention. Revoked rows are kept for
// the ledger retention window first so session history and incident review
// see them before they disappear.
type Janitor struct {
	logger          *slog.Logger
	ledger          ports.RefreshTokenLedger
	audit           ports.AuditSink
	interval        time.Duration
	ledgerRetention time.Duration
	auditRetention  time.Duration
}

// NewJanitor constructs the purge loop with sane defaults.
func NewJanitor(
	logger *slog.Logger,
	ledger ports.RefreshTokenLedger,
	audit ports.AuditSink,
	interval time.Duration,
	ledgerRetention time.Duration,
	auditRetention time.Duration,
) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if ledgerRetention <= 0 {
		ledgerRetention = 30 * 24 * time.Hour
	}
	if auditRetention <= 0 {
		auditRetention = 90 * 24 * time.Hour
	}
	return &Janitor{
		logger:          logger,
		ledger:          ledger,
		audit:           audit,
		interval:        interval,
		ledgerRetention: ledgerRetention,
		auditRetention:  auditRetention,
	}
}

// Run executes the periodic purge loop until context cancellation. The first
// sweep happens immediately so a crash-looping worker still makes progress.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (j *Janitor) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	tokens, err := j.ledger.PurgeDead(ctx, now.Add(-j.ledgerRetention))
	if err != nil {
		j.logger.ErrorContext(ctx, "ledger purge failed",
			"module", "maintenance.janitor",
			"layer", "adapter",
			"operation", "purge_refresh_tokens",
			"outcome", "failure",
			"error", err,
		)
	}

	events, err := j.audit.PurgeOlderThan(ctx, now.Add(-j.auditRetention))
	if err != nil {
		j.logger.ErrorContext(ctx, "audit purge failed",
			"module", "maintenance.janitor",
			"layer", "adapter",
			"operation", "purge_audit_events",
			"outcome", "failure",
			"error", err,
		)
	}

	if tokens > 0 || events > 0 {
		j.logger.InfoContext(ctx, "retention sweep completed",
			"module", "maintenance.janitor",
			"layer", "adapter",
			"operation", "sweep_once",
			"outcome", "success",
			"purged_tokens", tokens,
			"purged_audit_events", events,
		)
	}
}
