package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// expiryGrace keeps dead records in Redis slightly past their stored expiry
// so a verification attempt inside the grace window reports "expired" rather
// than "not found". The stored expiry stays authoritative either way.
const expiryGrace = 5 * time.Minute

// redisOTPRecord mirrors ports.OTPRecord with a numeric expiry the consume
// script can compare inside Redis.
type redisOTPRecord struct {
	Email       string    `json:"email"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresUnix int64     `json:"expires_unix"`
}

// consumeOTPScript verifies and deletes in one server-side step, so two
// concurrent verifications of the same code cannot both succeed. A wrong
// code leaves the record in place.
var consumeOTPScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
  return "not_found"
end
local rec = cjson.decode(raw)
if tonumber(ARGV[2]) >= tonumber(rec.expires_unix) then
  redis.call("DEL", KEYS[1])
  return "expired"
end
if rec.code ~= ARGV[1] then
  return "mismatch"
end
redis.call("DEL", KEYS[1])
return "ok"
`)

// RedisOTPStore keeps portal passcodes in Redis, for deployments running
// more than one instance behind a balancer.
type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func (s *RedisOTPStore) Put(ctx context.Context, email string, record ports.OTPRecord, ttl time.Duration) error {
	raw, err := json.Marshal(redisOTPRecord{
		Email:       record.Email,
		Code:        record.Code,
		ExpiresAt:   record.ExpiresAt,
		ExpiresUnix: record.ExpiresAt.Unix(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, otpKey(email), raw, ttl+expiryGrace).Err()
}

func (s *RedisOTPStore) Get(ctx context.Context, email string) (*ports.OTPRecord, error) {
	raw, err := s.client.Get(ctx, otpKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec redisOTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &ports.OTPRecord{
		Email:     rec.Email,
		Code:      rec.Code,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *RedisOTPStore) Consume(ctx context.Context, email, code string, now time.Time) error {
	result, err := consumeOTPScript.Run(ctx, s.client, []string{otpKey(email)}, code, now.Unix()).Text()
	if err != nil {
		return fmt.Errorf("consume passcode: %w", err)
	}
	switch result {
	case "ok":
		return nil
	case "not_found":
		return domain.ErrOTPNotFound
	case "expired":
		return domain.ErrOTPExpired
	case "mismatch":
		return domain.ErrOTPMismatch
	default:
		return fmt.Errorf("consume passcode: unexpected result %q", result)
	}
}

func (s *RedisOTPStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, otpKey(email)).Err()
}

func otpKey(email string) string { return "portal:otp:" + email }
