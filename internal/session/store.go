package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no session matches the lookup key.
var ErrNotFound = errors.New("session: not found")

// Session represents an active caller session. The telephony layer holds only
// the id; the store owns the record.
type Session struct {
	ID          string `json:"session_id"`
	PhoneNumber string `json:"phone_number"`
	Channel     string `json:"channel"`
}

// Store maps session ids to caller identity for the lifetime of a call.
type Store interface {
	Create(ctx context.Context, phoneNumber, channel string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	GetByPhoneAndChannel(ctx context.Context, phoneNumber, channel string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a mutex-guarded in-memory session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create registers a new session with a fresh unique id.
func (s *MemoryStore) Create(_ context.Context, phoneNumber, channel string) (Session, error) {
	sess := Session{
		ID:          uuid.NewString(),
		PhoneNumber: phoneNumber,
		Channel:     strings.ToLower(channel),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get fetches an existing session by id.
func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// GetByPhoneAndChannel finds a session by caller phone number and channel.
func (s *MemoryStore) GetByPhoneAndChannel(_ context.Context, phoneNumber, channel string) (Session, error) {
	channel = strings.ToLower(channel)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.PhoneNumber == phoneNumber && sess.Channel == channel {
			return sess, nil
		}
	}
	return Session{}, ErrNotFound
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
