package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/servicedeskhq/auth-service/internal/adapters/postgres"
	"github.com/servicedeskhq/auth-service/internal/adapters/security"
	"github.com/servicedeskhq/auth-service/internal/app/bootstrap"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// seed creates an initial account with a verified email, so a fresh
// deployment has an operator login before any mail transport exists.
func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "configs/default.yaml"), "path to the service config file")
		email      = flag.String("email", "", "email for the seeded account (required)")
		name       = flag.String("name", "Administrator", "display name for the seeded account")
		role       = flag.String("role", domain.RoleManager, "role for the seeded account (client, support, manager)")
	)
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		flag.Usage()
		log.Fatal("missing -email")
	}
	roleName, ok := domain.ParseRole(*role)
	if !ok || roleName == "" {
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	password, err := promptPassword()
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	if err := domain.ValidatePassword(password); err != nil {
		log.Fatalf("password rejected: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("gorm sql db: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	hash, err := security.NewBcryptHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	repos := postgres.NewRepositories(db)
	now := time.Now().UTC()

	// The account is created unverified and its verification token consumed
	// right away; the seeded operator never sees a verification email.
	seedToken := randomHex(32)
	user, err := repos.Users.Create(ctx, ports.CreateUserParams{
		Email:                 strings.ToLower(strings.TrimSpace(*email)),
		Name:                  strings.TrimSpace(*name),
		PasswordHash:          hash,
		Role:                  roleName,
		VerificationTokenHash: seedToken,
		CreatedAt:             now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Fatalf("account %s already exists", *email)
		}
		log.Fatalf("create account: %v", err)
	}
	if _, err := repos.Users.ConsumeVerificationToken(ctx, seedToken, now); err != nil {
		log.Fatalf("mark email verified: %v", err)
	}

	fmt.Printf("created %s account %s (%s)\n", user.Role, user.Email, user.UserID)
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	fmt.Print("Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func randomHex(n int) string {
	raw := make([]byte, n)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
