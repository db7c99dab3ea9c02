package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the auth service.
// It merges file defaults and environment overrides to support both local and
// deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	// SessionStoreBackend selects where passcodes and portal sessions live:
	// "memory" for a single process, "redis" for multi-process deployments.
	SessionStoreBackend string

	AccessTokenSecret     string
	RefreshTokenSecret    string
	AllowEphemeralSecrets bool

	BcryptCost int

	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResetTokenTTL    time.Duration
	OTPTTL           time.Duration
	ClientSessionTTL time.Duration

	FailedThreshold int
	LockoutDuration time.Duration

	DefaultRole          string
	RequireVerifiedEmail bool

	AllowedOrigins []string
	CookieSecure   bool
	CookieDomain   string
	// PublicBaseURL is the origin placed in verification and reset links.
	PublicBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTimeout  time.Duration

	MaxDBConns int32

	JanitorInterval time.Duration
	LedgerRetention time.Duration
	AuditRetention  time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string `yaml:"postgres_url"`
		RedisURL     string `yaml:"redis_url"`
		SessionStore string `yaml:"session_store"`
	} `yaml:"dependencies"`
	Security struct {
		DefaultRole          string `yaml:"default_role"`
		RequireVerifiedEmail *bool  `yaml:"require_verified_email"`
		BcryptCost           int    `yaml:"bcrypt_cost"`
		FailedThreshold      int    `yaml:"failed_login_threshold"`
		LockoutMinutes       int    `yaml:"lockout_minutes"`
	} `yaml:"security"`
	HTTP struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
		CookieSecure   *bool    `yaml:"cookie_secure"`
		CookieDomain   string   `yaml:"cookie_domain"`
		PublicBaseURL  string   `yaml:"public_base_url"`
	} `yaml:"http"`
	Mail struct {
		SMTPHost string `yaml:"smtp_host"`
		SMTPPort int    `yaml:"smtp_port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"mail"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:             "auth-service",
		HTTPPort:              8080,
		GRPCPort:              9090,
		SessionStoreBackend:   "memory",
		AllowEphemeralSecrets: true,
		BcryptCost:            12,
		AccessTokenTTL:        15 * time.Minute,
		RefreshTokenTTL:       7 * 24 * time.Hour,
		ResetTokenTTL:         time.Hour,
		OTPTTL:                5 * time.Minute,
		ClientSessionTTL:      24 * time.Hour,
		FailedThreshold:       5,
		LockoutDuration:       15 * time.Minute,
		DefaultRole:           "client",
		AllowedOrigins:        []string{"http://localhost:5173"},
		PublicBaseURL:         "http://localhost:8080",
		SMTPPort:              587,
		MailFrom:              "no-reply@servicedesk.local",
		MailTimeout:           10 * time.Second,
		MaxDBConns:            20,
		JanitorInterval:       time.Hour,
		LedgerRetention:       30 * 24 * time.Hour,
		AuditRetention:        90 * 24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Dependencies.SessionStore != "" {
			cfg.SessionStoreBackend = f.Dependencies.SessionStore
		}
		if f.Security.DefaultRole != "" {
			cfg.DefaultRole = f.Security.DefaultRole
		}
		if f.Security.RequireVerifiedEmail != nil {
			cfg.RequireVerifiedEmail = *f.Security.RequireVerifiedEmail
		}
		if f.Security.BcryptCost > 0 {
			cfg.BcryptCost = f.Security.BcryptCost
		}
		if f.Security.FailedThreshold > 0 {
			cfg.FailedThreshold = f.Security.FailedThreshold
		}
		if f.Security.LockoutMinutes > 0 {
			cfg.LockoutDuration = time.Duration(f.Security.LockoutMinutes) * time.Minute
		}
		if len(f.HTTP.AllowedOrigins) > 0 {
			cfg.AllowedOrigins = f.HTTP.AllowedOrigins
		}
		if f.HTTP.CookieSecure != nil {
			cfg.CookieSecure = *f.HTTP.CookieSecure
		}
		if f.HTTP.CookieDomain != "" {
			cfg.CookieDomain = f.HTTP.CookieDomain
		}
		if f.HTTP.PublicBaseURL != "" {
			cfg.PublicBaseURL = f.HTTP.PublicBaseURL
		}
		if f.Mail.SMTPHost != "" {
			cfg.SMTPHost = f.Mail.SMTPHost
		}
		if f.Mail.SMTPPort > 0 {
			cfg.SMTPPort = f.Mail.SMTPPort
		}
		if f.Mail.Username != "" {
			cfg.SMTPUsername = f.Mail.Username
		}
		if f.Mail.Password != "" {
			cfg.SMTPPassword = f.Mail.Password
		}
		if f.Mail.From != "" {
			cfg.MailFrom = f.Mail.From
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.SessionStoreBackend = strings.ToLower(strings.TrimSpace(envOrDefault("SESSION_STORE_BACKEND", cfg.SessionStoreBackend)))

	cfg.AccessTokenSecret = envOrDefault("ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret)
	cfg.RefreshTokenSecret = envOrDefault("REFRESH_TOKEN_SECRET", cfg.RefreshTokenSecret)
	cfg.AllowEphemeralSecrets = envBool("AUTH_ALLOW_EPHEMERAL_SECRETS", cfg.AllowEphemeralSecrets)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", int(cfg.RefreshTokenTTL.Hours()/24))) * 24 * time.Hour
	cfg.ResetTokenTTL = time.Duration(envInt("RESET_TOKEN_TTL_MINUTES", int(cfg.ResetTokenTTL.Minutes()))) * time.Minute
	cfg.OTPTTL = time.Duration(envInt("OTP_TTL_MINUTES", int(cfg.OTPTTL.Minutes()))) * time.Minute
	cfg.ClientSessionTTL = time.Duration(envInt("CLIENT_SESSION_TTL_HOURS", int(cfg.ClientSessionTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute

	cfg.DefaultRole = envOrDefault("DEFAULT_ROLE", cfg.DefaultRole)
	cfg.RequireVerifiedEmail = envBool("REQUIRE_VERIFIED_EMAIL", cfg.RequireVerifiedEmail)

	cfg.AllowedOrigins = envCSV("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieDomain = envOrDefault("COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL)

	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.MailFrom = envOrDefault("MAIL_FROM", cfg.MailFrom)
	cfg.MailTimeout = time.Duration(envInt("MAIL_TIMEOUT_SECONDS", int(cfg.MailTimeout.Seconds()))) * time.Second

	cfg.JanitorInterval = time.Duration(envInt("JANITOR_INTERVAL_MINUTES", int(cfg.JanitorInterval.Minutes()))) * time.Minute
	cfg.LedgerRetention = time.Duration(envInt("LEDGER_RETENTION_DAYS", int(cfg.LedgerRetention.Hours()/24))) * 24 * time.Hour
	cfg.AuditRetention = time.Duration(envInt("AUDIT_RETENTION_DAYS", int(cfg.AuditRetention.Hours()/24))) * 24 * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	switch cfg.SessionStoreBackend {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("missing REDIS_URL for session_store=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown session store backend %q", cfg.SessionStoreBackend)
	}
	if (cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "") && !cfg.AllowEphemeralSecrets {
		return Config{}, fmt.Errorf("missing ACCESS_TOKEN_SECRET or REFRESH_TOKEN_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
