package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
)

// MemoryStore is the in-process fallback with the same TTL and trimming rules as ValkeyStore.
type MemoryStore struct {
	mu          sync.Mutex
	ttl         time.Duration
	maxMessages int
	now         func() time.Time

	sessions  map[string][]entities.ChatMessage
	expiresAt map[string]time.Time
}

// NewMemoryStore creates an in-memory store. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration, maxMessages int) *MemoryStore {
	return &MemoryStore{
		ttl:         ttl,
		maxMessages: maxMessages,
		now:         time.Now,
		sessions:    make(map[string][]entities.ChatMessage),
		expiresAt:   make(map[string]time.Time),
	}
}

// Append adds messages and refreshes the session TTL.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, messages ...entities.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	history := append(s.sessions[sessionID], messages...)
	if s.maxMessages > 0 && len(history) > s.maxMessages {
		history = slices.Clone(history[len(history)-s.maxMessages:])
	}
	s.sessions[sessionID] = history
	if s.ttl > 0 {
		s.expiresAt[sessionID] = s.now().Add(s.ttl)
	}
	return nil
}

// History returns a copy of the session's messages, oldest first.
func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	return slices.Clone(s.sessions[sessionID]), nil
}

// Reset drops the session.
func (s *MemoryStore) Reset(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.expiresAt, sessionID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) expireLocked(sessionID string) {
	if deadline, ok := s.expiresAt[sessionID]; ok && !s.now().Before(deadline) {
		delete(s.sessions, sessionID)
		delete(s.expiresAt, sessionID)
	}
}
