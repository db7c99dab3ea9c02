package postgres

import (
	"github.com/servicedeskhq/auth-service/internal/ports"
	"gorm.io/gorm"
)

// Repositories bundles the Postgres-backed port implementations sharing one
// connection pool.
type Repositories struct {
	Users         ports.UserDirectory
	RefreshTokens ports.RefreshTokenLedger
	Audit         ports.AuditSink
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         &userRepository{db: db},
		RefreshTokens: &refreshTokenRepository{db: db},
		Audit:         &auditRepository{db: db},
	}
}
