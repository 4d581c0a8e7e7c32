package auth

import (
	"context"
	"sync"
	"time"

	"milstock.org/internal/ids"
)

// IdentityStore persists registered identities. Email lookups are
// case-sensitive exact matches.
type IdentityStore interface {
	Create(ctx context.Context, identity *Identity) error
	Find(ctx context.Context, id string) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
}

// InMemoryIdentities is a process-owned identity store. State resets on
// restart.
type InMemoryIdentities struct {
	mu      sync.RWMutex
	byID    map[string]Identity
	byEmail map[string]string // email -> id
}

// NewInMemoryIdentities creates an empty store.
func NewInMemoryIdentities() *InMemoryIdentities {
	return &InMemoryIdentities{
		byID:    make(map[string]Identity),
		byEmail: make(map[string]string),
	}
}

func (s *InMemoryIdentities) Create(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[identity.Email]; ok {
		return ErrConflict
	}
	if identity.ID == "" {
		identity.ID = ids.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	s.byID[identity.ID] = *identity
	s.byEmail[identity.Email] = identity.ID
	return nil
}

func (s *InMemoryIdentities) Find(ctx context.Context, id string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return identity, nil
}

func (s *InMemoryIdentities) FindByEmail(ctx context.Context, email string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return s.byID[id], nil
}
