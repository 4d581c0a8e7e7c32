package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"milstock.org/internal/ids"
)

// Service registers identities and checks their credentials against the
// backing store.
type Service struct {
	store IdentityStore
	now   func() time.Time
}

// NewService constructs a credential service over the given store.
func NewService(store IdentityStore) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Register creates a new identity. The email must not already be registered
// (exact, case-sensitive match); the secret is stored only as a bcrypt hash.
// Every new identity gets the logistics role.
func (s *Service) Register(ctx context.Context, email, secret string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return Identity{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if secret == "" {
		return Identity{}, fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}

	hash, err := HashPassword(secret)
	if err != nil {
		return Identity{}, err
	}
	identity := Identity{
		ID:           ids.New(),
		Email:        email,
		Role:         RoleLogistics,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, &identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// Authenticate resolves an identity by email and verifies the secret.
// Unknown email fails with ErrNotFound, a wrong secret with
// ErrInvalidCredential.
func (s *Service) Authenticate(ctx context.Context, email, secret string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || secret == "" {
		return Identity{}, ErrInvalidCredential
	}
	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	if err := VerifyPassword(identity.PasswordHash, secret); err != nil {
		return Identity{}, ErrInvalidCredential
	}
	return identity, nil
}
