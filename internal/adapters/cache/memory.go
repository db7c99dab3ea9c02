package cache

import (
	"context"
	"sync"
	"time"

	"github.com/servicedeskhq/auth-service/internal/domain"
	"github.com/servicedeskhq/auth-service/internal/ports"
)

// MemoryOTPStore keeps portal passcodes in process memory. Records do not
// survive a restart, which is acceptable for a five-minute secret; callers
// simply request a new code.
type MemoryOTPStore struct {
	mu    sync.Mutex
	items map[string]ports.OTPRecord
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{items: make(map[string]ports.OTPRecord)}
}

// Put overwrites any existing record for the email; the previous code stops
// verifying the moment a new one is issued.
func (s *MemoryOTPStore) Put(_ context.Context, email string, record ports.OTPRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[email] = record
	return nil
}

func (s *MemoryOTPStore) Get(_ context.Context, email string) (*ports.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.items[email]
	if !ok {
		return nil, nil
	}
	out := record
	return &out, nil
}

// Consume checks and deletes under one lock, so two concurrent verifications
// of the same code cannot both succeed.
func (s *MemoryOTPStore) Consume(_ context.Context, email, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.items[email]
	if !ok {
		return domain.ErrOTPNotFound
	}
	if !now.Before(record.ExpiresAt) {
		delete(s.items, email)
		return domain.ErrOTPExpired
	}
	if record.Code != code {
		return domain.ErrOTPMismatch
	}
	delete(s.items, email)
	return nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}

// MemoryClientSessionStore keeps portal sessions in process memory, with the
// same restart semantics as the passcode store.
type MemoryClientSessionStore struct {
	mu    sync.Mutex
	items map[string]ports.ClientSession
}

func NewMemoryClientSessionStore() *MemoryClientSessionStore {
	return &MemoryClientSessionStore{items: make(map[string]ports.ClientSession)}
}

func (s *MemoryClientSessionStore) Put(_ context.Context, email string, session ports.ClientSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[email] = session
	return nil
}

// Get drops an expired session on access and reports it absent.
func (s *MemoryClientSessionStore) Get(_ context.Context, email string, now time.Time) (*ports.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.items[email]
	if !ok {
		return nil, nil
	}
	if !now.Before(session.ExpiresAt) {
		delete(s.items, email)
		return nil, nil
	}
	out := session
	return &out, nil
}

func (s *MemoryClientSessionStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}
