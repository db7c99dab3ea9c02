package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// RedisClientSessionStore keeps portal sessions in Redis so a verified
// client stays signed in across service instances.
type RedisClientSessionStore struct {
	client *redis.Client
}

func NewRedisClientSessionStore(client *redis.Client) *RedisClientSessionStore {
	return &RedisClientSessionStore{client: client}
}

func (s *RedisClientSessionStore) Put(ctx context.Context, email string, session ports.ClientSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(email), raw, ttl+expiryGrace).Err()
}

// Get checks the stored expiry rather than trusting key eviction, and drops
// a dead session on access.
func (s *RedisClientSessionStore) Get(ctx context.Context, email string, now time.Time) (*ports.ClientSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var session ports.ClientSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if !now.Before(session.ExpiresAt) {
		_ = s.client.Del(ctx, sessionKey(email)).Err()
		return nil, nil
	}
	return &session, nil
}

func (s *RedisClientSessionStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, sessionKey(email)).Err()
}

func sessionKey(email string) string { return "portal:session:" + email }
