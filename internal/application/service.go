package application

import (
	"time"

	"github.com/servicedeskhq/auth-service/internal/ports"
)

// Service implements the authentication flows: credential login with
// lockout, refresh token rotation against the ledger, password recovery,
// email verification, and the passcode-based client portal flow.
//
// All time arithmetic goes through nowFn so tests can pin the clock.
type Service struct {
	cfg    Config
	users  ports.UserDirectory
	ledger ports.RefreshTokenLedger
	audit  ports.AuditSink
	otps   ports.OTPStore
	portal ports.ClientSessionStore
	hasher ports.PasswordHasher
	codec  ports.TokenCodec
	mailer ports.Mailer
	guard  *LoginGuard
	nowFn  func() time.Time
}

type Dependencies struct {
	Config Config
	Users  ports.UserDirectory
	Ledger ports.RefreshTokenLedger
	Audit  ports.AuditSink
	OTPs   ports.OTPStore
	Portal ports.ClientSessionStore
	Hasher ports.PasswordHasher
	Codec  ports.TokenCodec
	Mailer ports.Mailer
	// Now overrides the service clock. Leave nil outside of tests.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = defaultRole
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = defaultResetTokenTTL
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = defaultOTPTTL
	}
	if cfg.ClientSessionTTL <= 0 {
		cfg.ClientSessionTTL = defaultClientSessionTTL
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = defaultFailedLoginThreshold
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaultLockoutDuration
	}

	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		cfg:    cfg,
		users:  deps.Users,
		ledger: deps.Ledger,
		audit:  deps.Audit,
		otps:   deps.OTPs,
		portal: deps.Portal,
		hasher: deps.Hasher,
		codec:  deps.Codec,
		mailer: deps.Mailer,
		guard: &LoginGuard{
			users:     deps.Users,
			threshold: cfg.FailedLoginThreshold,
			window:    cfg.LockoutDuration,
		},
		nowFn: nowFn,
	}
}
