package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/servicedeskhq/auth-service/internal/adapters/cache"
	httpadapter "github.com/servicedeskhq/auth-service/internal/adapters/http"
	"github.com/servicedeskhq/auth-service/internal/adapters/security"
	"github.com/servicedeskhq/auth-service/internal/application"
	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

type contractEnv struct {
	router http.Handler
	mailer *contractMailer
}

func newContractEnv() *contractEnv {
	return newContractEnvOpts(nil, nil)
}

func newContractEnvReady(ready func(context.Context) error) *contractEnv {
	return newContractEnvOpts(ready, nil)
}

func newContractEnvOrigins(origins []string) *contractEnv {
	return newContractEnvOpts(nil, origins)
}

func newContractEnvOpts(ready func(context.Context) error, origins []string) *contractEnv {
	users := &contractUsers{
		byEmail: make(map[string]domain.User),
		byID:    make(map[uuid.UUID]domain.User),
	}
	ledger := &contractLedger{byHash: make(map[string]domain.RefreshTokenRecord)}
	mailer := newContractMailer()

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultRole:          domain.RoleClient,
			AccessTokenTTL:       15 * time.Minute,
			RefreshTokenTTL:      7 * 24 * time.Hour,
			ResetTokenTTL:        time.Hour,
			OTPTTL:               5 * time.Minute,
			ClientSessionTTL:     24 * time.Hour,
			FailedLoginThreshold: 5,
			LockoutDuration:      15 * time.Minute,
		},
		Users:  users,
		Ledger: ledger,
		Audit:  &contractAudit{},
		OTPs:   cache.NewMemoryOTPStore(),
		Portal: cache.NewMemoryClientSessionStore(),
		Hasher: contractHasher{},
		Codec:  security.NewEphemeralJWTCodec(),
		Mailer: mailer,
	})

	handler := httpadapter.NewHandler(svc, httpadapter.CookieConfig{
		Secure:     true,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, ready)

	return &contractEnv{
		router: httpadapter.NewRouter(handler, origins),
		mailer: mailer,
	}
}

func (e *contractEnv) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, res *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(res.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, res.Body.String())
	}
	return env
}

func decodeData(t *testing.T, res *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, res)
	if env.Status != "success" {
		t.Fatalf("expected success envelope, got %q (body %q)", env.Status, res.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v (body %q)", err, res.Body.String())
	}
}

func requireStatus(t *testing.T, res *httptest.ResponseRecorder, want int) {
	t.Helper()
	if res.Code != want {
		t.Fatalf("expected status %d, got %d (body %q)", want, res.Code, res.Body.String())
	}
}

func requireErrorCode(t *testing.T, res *httptest.ResponseRecorder, wantStatus int, wantCode string) envelope {
	t.Helper()
	requireStatus(t, res, wantStatus)
	env := decodeEnvelope(t, res)
	if env.Status != "error" || env.Code != wantCode {
		t.Fatalf("expected %s error, got status=%q code=%q (body %q)", wantCode, env.Status, env.Code, res.Body.String())
	}
	return env
}

func cookieByName(res *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// registerAndLogin drives the real endpoints so downstream assertions hold
// against externally observable behavior only.
func (e *contractEnv) registerAndLogin(t *testing.T, email, password, role string) loginData {
	t.Helper()

	body := `{"email":"` + email + `","password":"` + password + `"`
	if role != "" {
		body += `,"role":"` + role + `"`
	}
	body += `}`
	res := e.do(t, http.MethodPost, "/register", body)
	requireStatus(t, res, http.StatusCreated)

	loginRes := e.do(t, http.MethodPost, "/login", `{"email":"`+email+`","password":"`+password+`"}`)
	requireStatus(t, loginRes, http.StatusOK)

	var data loginData
	decodeData(t, loginRes, &data)
	return data
}

type loginData struct {
	User struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type contractUsers struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byID    map[uuid.UUID]domain.User
}

func (f *contractUsers) put(u domain.User) {
	f.byEmail[u.Email] = u
	f.byID[u.UserID] = u
}

func (f *contractUsers) Create(_ context.Context, params ports.CreateUserParams) (domain.User, error) {
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

func (f *contractUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *contractUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *contractUsers) RecordLoginFailure(_ context.Context, userID uuid.UUID, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
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

func (f *contractUsers) RecordLoginSuccess(_ context.Context, userID uuid.UUID, at time.Time) error {
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

func (f *contractUsers) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
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

func (f *contractUsers) SetResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error {
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

func (f *contractUsers) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
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

func (f *contractUsers) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
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

type contractLedger struct {
	mu     sync.Mutex
	byHash map[string]domain.RefreshTokenRecord
}

func (f *contractLedger) Store(_ context.Context, params ports.StoreRefreshTokenParams) (domain.RefreshTokenRecord, error) {
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

func (f *contractLedger) Lookup(_ context.Context, tokenHash string) (domain.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byHash[tokenHash]
	if !ok {
		return domain.RefreshTokenRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *contractLedger) Revoke(_ context.Context, tokenHash string, revokedAt time.Time) error {
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

func (f *contractLedger) Rotate(_ context.Context, oldTokenHash, newTokenHash string, newExpiresAt, now time.Time) (domain.RefreshTokenRecord, error) {
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

func (f *contractLedger) ListActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.RefreshTokenRecord, error) {
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

func (f *contractLedger) RevokeByID(_ context.Context, userID, recordID uuid.UUID, revokedAt time.Time) error {
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

func (f *contractLedger) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time) error {
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

func (f *contractLedger) PurgeDead(_ context.Context, before time.Time) (int64, error) {
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

type contractAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *contractAudit) Append(_ context.Context, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *contractAudit) ListRecent(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEvent, 0, limit)
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
	}
	return out, nil
}

func (f *contractAudit) PurgeOlderThan(_ context.Context, before time.Time) (int64, error) {
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

type contractHasher struct{}

func (contractHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (contractHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type contractMailer struct {
	mu           sync.Mutex
	configured   bool
	verification map[string]string
	resets       map[string]string
	otps         map[string]string
}

func newContractMailer() *contractMailer {
	return &contractMailer{
		verification: make(map[string]string),
		resets:       make(map[string]string),
		otps:         make(map[string]string),
	}
}

func (f *contractMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verification[to] = token
	return nil
}

func (f *contractMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[to] = token
	return nil
}

func (f *contractMailer) SendOTPEmail(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps[to] = code
	return nil
}

func (f *contractMailer) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *contractMailer) setConfigured(configured bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = configured
}

func (f *contractMailer) verificationTokenFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verification[email]
}

func (f *contractMailer) resetTokenFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[email]
}

func (f *contractMailer) otpFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otps[email]
}
