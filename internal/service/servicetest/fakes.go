// Package servicetest provides in-memory store and mailer fakes for tests.
package servicetest

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/yasut0ra/mini-task/internal/models"
	"github.com/yasut0ra/mini-task/internal/repository"
)

type FakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewFakeUserStore() *FakeUserStore {
	return &FakeUserStore{users: make(map[string]models.User)}
}

func (s *FakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *FakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *FakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *FakeUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &at
	s.users[id] = user
	return nil
}

func (s *FakeUserStore) UpdatePassword(_ context.Context, id string, hash []byte, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.ResetTokenHash = nil
	user.ResetExpiresAt = nil
	s.users[id] = user
	return nil
}

func (s *FakeUserStore) UpdateProfile(_ context.Context, id string, displayName string, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && other.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	user.DisplayName = displayName
	user.Email = email
	s.users[id] = user
	return nil
}

func (s *FakeUserStore) SetResetToken(_ context.Context, id string, tokenHash []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.ResetTokenHash = tokenHash
	user.ResetExpiresAt = &expiresAt
	s.users[id] = user
	return nil
}

func (s *FakeUserStore) FindByResetTokenHash(_ context.Context, tokenHash []byte, now time.Time) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if bytes.Equal(user.ResetTokenHash, tokenHash) && user.ResetExpiresAt != nil && user.ResetExpiresAt.After(now) {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *FakeUserStore) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cleared int64
	for id, user := range s.users {
		if user.ResetExpiresAt != nil && !user.ResetExpiresAt.After(now) {
			user.ResetTokenHash = nil
			user.ResetExpiresAt = nil
			s.users[id] = user
			cleared++
		}
	}
	return cleared, nil
}

type FakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.RefreshSession
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{sessions: make(map[string]models.RefreshSession)}
}

func (s *FakeSessionStore) Create(_ context.Context, session models.RefreshSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.CreatedAt = time.Now()
	s.sessions[session.ID] = session
	return nil
}

func (s *FakeSessionStore) FindByTokenHash(_ context.Context, tokenHash []byte) (models.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if bytes.Equal(session.TokenHash, tokenHash) {
			return session, nil
		}
	}
	return models.RefreshSession{}, repository.ErrSessionNotFound
}

func (s *FakeSessionStore) DeleteByTokenHash(_ context.Context, tokenHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if bytes.Equal(session.TokenHash, tokenHash) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *FakeSessionStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *FakeSessionStore) ListByUser(_ context.Context, userID string) ([]models.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []models.RefreshSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (s *FakeSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports the number of live sessions, for assertions.
func (s *FakeSessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// FailingUserStore wraps FakeUserStore and fails reads with the given error,
// simulating a store outage mid-request.
type FailingUserStore struct {
	*FakeUserStore
	GetByIDErr error
}

func (s *FailingUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	if s.GetByIDErr != nil {
		return models.User{}, s.GetByIDErr
	}
	return s.FakeUserStore.GetByID(ctx, id)
}

// FailingSessionStore wraps FakeSessionStore and fails lookups with the given
// error.
type FailingSessionStore struct {
	*FakeSessionStore
	FindErr error
}

func (s *FailingSessionStore) FindByTokenHash(ctx context.Context, tokenHash []byte) (models.RefreshSession, error) {
	if s.FindErr != nil {
		return models.RefreshSession{}, s.FindErr
	}
	return s.FakeSessionStore.FindByTokenHash(ctx, tokenHash)
}

// FakeMailer records every delivery instead of sending it.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []SentMail
}

type SentMail struct {
	To      string
	Subject string
	HTML    string
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (m *FakeMailer) Send(_ context.Context, to string, subject string, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *FakeMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

func (m *FakeMailer) Last() (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
