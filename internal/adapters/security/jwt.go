package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTCodec signs and verifies HS256 tokens with one secret per token kind.
// Separate secrets keep a leaked access secret from forging refresh tokens.
type JWTCodec struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewJWTCodec builds a codec from the two configured secrets.
func NewJWTCodec(accessSecret, refreshSecret string) (*JWTCodec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("access and refresh token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	return &JWTCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// NewEphemeralJWTCodec creates a codec with random secrets for local/dev use.
// Tokens stop validating on restart, which is acceptable there.
func NewEphemeralJWTCodec() *JWTCodec {
	return &JWTCodec{
		accessSecret:  []byte(randomSecret()),
		refreshSecret: []byte(randomSecret()),
	}
}

func randomSecret() string {
	raw := make([]byte, 32)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

type authJWTClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	DeviceID  string `json:"device_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (c *JWTCodec) IssueAccess(claims ports.TokenClaims) (string, error) {
	return c.sign(c.accessSecret, tokenTypeAccess, claims)
}

func (c *JWTCodec) IssueRefresh(claims ports.TokenClaims) (string, error) {
	return c.sign(c.refreshSecret, tokenTypeRefresh, claims)
}

func (c *JWTCodec) VerifyAccess(raw string) (ports.TokenClaims, error) {
	return c.verify(c.accessSecret, tokenTypeAccess, raw)
}

func (c *JWTCodec) VerifyRefresh(raw string) (ports.TokenClaims, error) {
	return c.verify(c.refreshSecret, tokenTypeRefresh, raw)
}

// DecodeUnverified extracts claims without signature or expiry validation.
func (c *JWTCodec) DecodeUnverified(raw string) (ports.TokenClaims, error) {
	var claims authJWTClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return ports.TokenClaims{}, err
	}
	return toPortClaims(&claims)
}

func (c *JWTCodec) sign(secret []byte, tokenType string, claims ports.TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authJWTClaims{
		UserID:    claims.UserID.String(),
		Email:     claims.Email,
		Role:      claims.Role,
		DeviceID:  claims.DeviceID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps every issued token distinct, so a rotation within
			// one wall-clock second still produces a fresh ledger hash.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(secret)
}

func (c *JWTCodec) verify(secret []byte, expectedType, raw string) (ports.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &authJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return ports.TokenClaims{}, err
	}
	claims, ok := parsed.Claims.(*authJWTClaims)
	if !ok || !parsed.Valid {
		return ports.TokenClaims{}, errors.New("invalid token claims")
	}
	if claims.TokenType != expectedType {
		return ports.TokenClaims{}, fmt.Errorf("unexpected token type: %q", claims.TokenType)
	}
	return toPortClaims(claims)
}

func toPortClaims(claims *authJWTClaims) (ports.TokenClaims, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("parse user_id: %w", err)
	}

	out := ports.TokenClaims{
		UserID:   userID,
		Email:    claims.Email,
		Role:     claims.Role,
		DeviceID: claims.DeviceID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
