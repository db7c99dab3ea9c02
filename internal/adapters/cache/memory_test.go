package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

func TestMemoryOTPStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now().UTC()
	record := ports.OTPRecord{Email: "client@example.com", Code: "123456", ExpiresAt: now.Add(5 * time.Minute)}

	require.NoError(t, store.Put(ctx, record.Email, record, 5*time.Minute))

	got, err := store.Get(ctx, record.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "123456", got.Code)

	// A wrong code leaves the record in place.
	err = store.Consume(ctx, record.Email, "654321", now)
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)

	require.NoError(t, store.Consume(ctx, record.Email, "123456", now))

	// The successful consume spent the record.
	err = store.Consume(ctx, record.Email, "123456", now)
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestMemoryOTPStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now().UTC()
	record := ports.OTPRecord{Email: "client@example.com", Code: "123456", ExpiresAt: now.Add(5 * time.Minute)}

	require.NoError(t, store.Put(ctx, record.Email, record, 5*time.Minute))

	err := store.Consume(ctx, record.Email, "123456", now.Add(6*time.Minute))
	assert.ErrorIs(t, err, domain.ErrOTPExpired)

	// Expiry removes the record.
	err = store.Consume(ctx, record.Email, "123456", now)
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestMemoryOTPStoreOverwrite(t *testing.T) {
	t.Parallel()

	store := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now().UTC()

	first := ports.OTPRecord{Email: "client@example.com", Code: "111111", ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, store.Put(ctx, first.Email, first, 5*time.Minute))
	second := ports.OTPRecord{Email: "client@example.com", Code: "222222", ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, store.Put(ctx, second.Email, second, 5*time.Minute))

	err := store.Consume(ctx, "client@example.com", "111111", now)
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	require.NoError(t, store.Consume(ctx, "client@example.com", "222222", now))
}

func TestMemoryClientSessionStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryClientSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()
	session := ports.ClientSession{Email: "client@example.com", VerifiedAt: now, ExpiresAt: now.Add(24 * time.Hour)}

	require.NoError(t, store.Put(ctx, session.Email, session, 24*time.Hour))

	got, err := store.Get(ctx, session.Email, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Email, got.Email)

	// An expired session reads as absent and is dropped on access.
	got, err = store.Get(ctx, session.Email, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = store.Get(ctx, session.Email, now)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, session.Email, session, 24*time.Hour))
	require.NoError(t, store.Delete(ctx, session.Email))
	got, err = store.Get(ctx, session.Email, now)
	require.NoError(t, err)
	assert.Nil(t, got)
}
