package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	cacheadapter "github.com/servicedeskhq/auth-service/internal/adapters/cache"
	grpcadapter "github.com/servicedeskhq/auth-service/internal/adapters/grpc"
	httpadapter "github.com/servicedeskhq/auth-service/internal/adapters/http"
	mailadapter "github.com/servicedeskhq/auth-service/internal/adapters/mail"
	"github.com/servicedeskhq/auth-service/internal/adapters/maintenance"
	"github.com/servicedeskhq/auth-service/internal/adapters/postgres"
	"github.com/servicedeskhq/auth-service/internal/adapters/security"
	"github.com/servicedeskhq/auth-service/internal/application"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	janitor    *maintenance.Janitor
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping auth service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort, "session_store", cfg.SessionStoreBackend)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	var (
		redisClient *redis.Client
		otps        ports.OTPStore
		portal      ports.ClientSessionStore
	)
	switch cfg.SessionStoreBackend {
	case "redis":
		redisClient, err = cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		otps = cacheadapter.NewRedisOTPStore(redisClient)
		portal = cacheadapter.NewRedisClientSessionStore(redisClient)
	default:
		otps = cacheadapter.NewMemoryOTPStore()
		portal = cacheadapter.NewMemoryClientSessionStore()
	}

	cleanup := func(context.Context) {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = sqlDB.Close()
	}

	var codec ports.TokenCodec
	if cfg.AccessTokenSecret == "" && cfg.RefreshTokenSecret == "" && cfg.AllowEphemeralSecrets {
		logger.Warn("using ephemeral token secrets for local/dev runtime")
		codec = security.NewEphemeralJWTCodec()
	} else {
		c, codecErr := security.NewJWTCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
		if codecErr != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("init token codec: %w", codecErr)
		}
		codec = c
	}

	var mailer ports.Mailer
	if cfg.SMTPHost != "" {
		mailer = mailadapter.NewSMTPMailer(mailadapter.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			BaseURL:  cfg.PublicBaseURL,
			Timeout:  cfg.MailTimeout,
		})
	} else {
		logger.Warn("no smtp host configured; mail runs in development mode")
		mailer = mailadapter.NewDevMailer()
	}

	repos := postgres.NewRepositories(db)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultRole:          cfg.DefaultRole,
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTL:      cfg.RefreshTokenTTL,
			ResetTokenTTL:        cfg.ResetTokenTTL,
			OTPTTL:               cfg.OTPTTL,
			ClientSessionTTL:     cfg.ClientSessionTTL,
			FailedLoginThreshold: cfg.FailedThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			RequireVerifiedEmail: cfg.RequireVerifiedEmail,
		},
		Users:  repos.Users,
		Ledger: repos.RefreshTokens,
		Audit:  repos.Audit,
		OTPs:   otps,
		Portal: portal,
		Hasher: security.NewBcryptHasher(cfg.BcryptCost),
		Codec:  codec,
		Mailer: mailer,
	})

	ready := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	handler := httpadapter.NewHandler(svc, httpadapter.CookieConfig{
		Secure:     cfg.CookieSecure,
		Domain:     cfg.CookieDomain,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, ready)
	router := httpadapter.NewRouter(handler, cfg.AllowedOrigins)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(svc))
	reflection.Register(grpcServer)

	janitor := maintenance.NewJanitor(
		logger,
		repos.RefreshTokens,
		repos.Audit,
		cfg.JanitorInterval,
		cfg.LedgerRetention,
		cfg.AuditRetention,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		janitor:    janitor,
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The gRPC port is bound here rather than in NewRuntime so the worker and
	// admin runtimes never contend for it.
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.cleanupFn(shutdownCtx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("janitor worker started", "interval", r.cfg.JanitorInterval.String())
	err := r.janitor.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
