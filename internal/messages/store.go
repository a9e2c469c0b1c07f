// Package messages keeps flash messages per admin session until the next
// page render drains them.
package messages

import (
	"context"
	"errors"
	"sync"

	"newsletteradmin/internal/models"
)

// ErrNoSession is returned when a message is queued without a session key
var ErrNoSession = errors.New("session id is required")

// Store queues messages for a session
type Store interface {
	Add(ctx context.Context, session string, msg *models.Message) error
	Drain(ctx context.Context, session string) ([]*models.Message, error)
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]*models.Message
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]*models.Message)}
}

func (s *MemoryStore) Add(ctx context.Context, session string, msg *models.Message) error {
	if session == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session] = append(s.sessions[session], msg)
	return nil
}

func (s *MemoryStore) Drain(ctx context.Context, session string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.sessions[session]
	delete(s.sessions, session)
	return msgs, nil
}
