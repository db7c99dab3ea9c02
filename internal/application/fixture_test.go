package application_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/adapters/cache"
	"github.com/servicedeskhq/auth-service/internal/adapters/security"
	"github.com/servicedeskhq/auth-service/internal/application"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// fixture wires the service against in-memory fakes plus the real token codec
// and the real in-memory portal stores. The clock is movable so expiry and
// lockout windows can be crossed without sleeping.
type fixture struct {
	service *application.Service
	users   *fakeDirectory
	ledger  *fakeLedger
	audit   *fakeAudit
	otps    *cache.MemoryOTPStore
	portal  *cache.MemoryClientSessionStore
	mailer  *fakeMailer
	clock   *testClock
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func defaultTestConfig() application.Config {
	return application.Config{
		DefaultRole:          domain.RoleClient,
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		ResetTokenTTL:        time.Hour,
		OTPTTL:               5 * time.Minute,
		ClientSessionTTL:     24 * time.Hour,
		FailedLoginThreshold: 5,
		LockoutDuration:      15 * time.Minute,
	}
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	clock := newTestClock()
	users := &fakeDirectory{
		byEmail: make(map[string]domain.User),
		byID:    make(map[uuid.UUID]domain.User),
	}
	ledger := &fakeLedger{byHash: make(map[string]domain.RefreshTokenRecord)}
	audit := &fakeAudit{}
	otps := cache.NewMemoryOTPStore()
	portal := cache.NewMemoryClientSessionStore()
	mailer := newFakeMailer()

	svc := application.NewService(application.Dependencies{
		Config: cfg,
		Users:  users,
		Ledger: ledger,
		Audit:  audit,
		OTPs:   otps,
		Portal: portal,
		Hasher: &fakeHasher{},
		Codec:  security.NewEphemeralJWTCodec(),
		Mailer: mailer,
		Now:    clock.Now,
	})

	return &fixture{
		service: svc,
		users:   users,
		ledger:  ledger,
		audit:   audit,
		otps:    otps,
		portal:  portal,
		mailer:  mailer,
		clock:   clock,
	}
}

// testClock starts at the real wall clock so issued tokens stay inside their
// real-time validity while tests move the service clock forward.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDirectory struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byID    map[uuid.UUID]domain.User
}

// put must be called with the mutex held.
func (f *fakeDirectory) put(u domain.User) {
	f.byEmail[u.Email] = u
	f.byID[u.UserID] = u
}

func (f *fakeDirectory) Create(_ context.Context, params ports.CreateUserParams) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return domain.User{}, domain.ErrConflict
	}
	verification := params.VerificationTokenHash
	u := domain.User{
		UserID:                uuid.New(),
		Email:                 params.Email,
		Name:                  params.Name,
		PasswordHash:          params.PasswordHash,
		Role:                  params.Role,
		IsActive:              true,
		VerificationTokenHash: &verification,
		CreatedAt:             params.CreatedAt,
		UpdatedAt:             params.CreatedAt,
	}
	f.put(u)
	return u, nil
}

func (f *fakeDirectory) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) RecordLoginFailure(_ context.Context, userID uuid.UUID, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return ports.LockoutState{}, domain.ErrNotFound
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= threshold {
		lockedUntil := now.Add(lockoutWindow)
		u.LockedUntil = &lockedUntil
	}
	u.UpdatedAt = now
	f.put(u)
	return ports.LockoutState{FailedCount: u.FailedLoginCount, LockedUntil: u.LockedUntil}, nil
}

func (f *fakeDirectory) RecordLoginSuccess(_ context.Context, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	lastLogin := at
	u.LastLoginAt = &lastLogin
	u.UpdatedAt = at
	f.put(u)
	return nil
}

func (f *fakeDirectory) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	f.put(u)
	return nil
}

func (f *fakeDirectory) SetResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.ResetTokenHash = &tokenHash
	expiry := expiresAt
	u.ResetTokenExpiresAt = &expiry
	u.UpdatedAt = updatedAt
	f.put(u)
	return nil
}

func (f *fakeDirectory) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash {
			continue
		}
		if u.ResetTokenExpiresAt == nil || !u.ResetTokenExpiresAt.After(now) {
			continue
		}
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		u.UpdatedAt = now
		f.put(u)
		return u.UserID, nil
	}
	return uuid.Nil, domain.ErrNotFound
}

func (f *fakeDirectory) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.VerificationTokenHash == nil || *u.VerificationTokenHash != tokenHash {
			continue
		}
		u.VerificationTokenHash = nil
		u.EmailVerified = true
		u.UpdatedAt = now
		f.put(u)
		return u.UserID, nil
	}
	return uuid.Nil, domain.ErrNotFound
}

type fakeLedger struct {
	mu     sync.Mutex
	byHash map[string]domain.RefreshTokenRecord
}

func (f *fakeLedger) Store(_ context.Context, params ports.StoreRefreshTokenParams) (domain.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := domain.RefreshTokenRecord{
		ID:        uuid.New(),
		UserID:    params.UserID,
		TokenHash: params.TokenHash,
		DeviceID:  params.DeviceID,
		IPAddress: params.IPAddress,
		UserAgent: params.UserAgent,
		CreatedAt: params.CreatedAt,
		ExpiresAt: params.ExpiresAt,
	}
	f.byHash[params.TokenHash] = rec
	return rec, nil
}

func (f *fakeLedger) Lookup(_ context.Context, tokenHash string) (domain.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byHash[tokenHash]
	if !ok {
		return domain.RefreshTokenRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeLedger) Revoke(_ context.Context, tokenHash string, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byHash[tokenHash]
	if !ok || rec.RevokedAt != nil {
		return domain.ErrNotFound
	}
	at := revokedAt
	rec.RevokedAt = &at
	f.byHash[tokenHash] = rec
	return nil
}

// Rotate mirrors the conditional-update semantics of the durable ledger: the
// whole check-revoke-insert runs under one lock so concurrent rotations of the
// same token produce exactly one winner.
func (f *fakeLedger) Rotate(_ context.Context, oldTokenHash, newTokenHash string, newExpiresAt, now time.Time) (domain.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.byHash[oldTokenHash]
	if !ok || old.RevokedAt != nil || !old.ExpiresAt.After(now) {
		return domain.RefreshTokenRecord{}, domain.ErrRefreshNotRecognized
	}
	revoked := now
	old.RevokedAt = &revoked
	f.byHash[oldTokenHash] = old

	rec := domain.RefreshTokenRecord{
		ID:        uuid.New(),
		UserID:    old.UserID,
		TokenHash: newTokenHash,
		DeviceID:  old.DeviceID,
		IPAddress: old.IPAddress,
		UserAgent: old.UserAgent,
		CreatedAt: now,
		ExpiresAt: newExpiresAt,
	}
	f.byHash[newTokenHash] = rec
	return rec, nil
}

func (f *fakeLedger) ListActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RefreshTokenRecord
	for _, rec := range f.byHash {
		if rec.UserID == userID && rec.RevokedAt == nil && rec.ExpiresAt.After(now) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLedger) RevokeByID(_ context.Context, userID, recordID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, rec := range f.byHash {
		if rec.ID != recordID || rec.UserID != userID || rec.RevokedAt != nil {
			continue
		}
		at := revokedAt
		rec.RevokedAt = &at
		f.byHash[hash] = rec
		return nil
	}
	return domain.ErrNotFound
}

func (f *fakeLedger) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, rec := range f.byHash {
		if rec.UserID != userID || rec.RevokedAt != nil {
			continue
		}
		at := revokedAt
		rec.RevokedAt = &at
		f.byHash[hash] = rec
	}
	return nil
}

func (f *fakeLedger) PurgeDead(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	for hash, rec := range f.byHash {
		if rec.ExpiresAt.Before(before) || (rec.RevokedAt != nil && rec.RevokedAt.Before(before)) {
			delete(f.byHash, hash)
			purged++
		}
	}
	return purged, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAudit) Append(_ context.Context, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) ListRecent(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEvent, 0, limit)
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
	}
	return out, nil
}

func (f *fakeAudit) PurgeOlderThan(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	var kept []domain.AuditEvent
	for _, e := range f.events {
		if e.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return purged, nil
}

func (f *fakeAudit) last() (domain.AuditEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return domain.AuditEvent{}, false
	}
	return f.events[len(f.events)-1], true
}

func (f *fakeAudit) countAction(action domain.AuditAction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeMailer struct {
	mu           sync.Mutex
	configured   bool
	sendErr      error
	verification map[string]string
	resets       map[string]string
	otps         map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		configured:   true,
		verification: make(map[string]string),
		resets:       make(map[string]string),
		otps:         make(map[string]string),
	}
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.verification[to] = token
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.resets[to] = token
	return nil
}

func (f *fakeMailer) SendOTPEmail(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.otps[to] = code
	return nil
}

func (f *fakeMailer) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *fakeMailer) setConfigured(configured bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = configured
}

func (f *fakeMailer) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeMailer) verificationTokenFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verification[email]
}

func (f *fakeMailer) resetTokenFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[email]
}

func (f *fakeMailer) otpFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otps[email]
}
