package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemoryIdentities())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	identity, err := svc.Register(ctx, "a@x.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if identity.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if identity.Role != RoleLogistics {
		t.Fatalf("expected logistics role, got %s", identity.Role)
	}
	if identity.PasswordHash == "pw" || identity.PasswordHash == "" {
		t.Fatalf("secret stored without hashing")
	}

	got, err := svc.Authenticate(ctx, "a@x.com", "pw")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != identity.ID {
		t.Fatalf("authenticated wrong identity: %s", got.ID)
	}
	if got.Role != identity.Role {
		t.Fatalf("role mismatch after login: %s", got.Role)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "a@x.com", "other"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterEmailIsCaseSensitive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "A@x.com", "pw"); err != nil {
		t.Fatalf("expected distinct identity for different casing, got %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Authenticate(context.Background(), "missing@x.com", "pw"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestRegisterRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "pw"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(ctx, "a@x.com", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFromContext(ctx); ok {
		t.Fatalf("expected no identity in fresh context")
	}

	ctx = ContextWithIdentity(ctx, Identity{ID: "id-7", Email: "a@x.com", Role: RoleLogistics})
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.ID != "id-7" {
		t.Fatalf("unexpected identity: %+v ok=%v", identity, ok)
	}
	if !HasRole(ctx, RoleLogistics) {
		t.Fatalf("expected logistics role")
	}
	if HasRole(ctx, "commander") {
		t.Fatalf("unexpected role match")
	}

	ctx = ContextWithToken(ctx, "raw-token")
	if tok, ok := TokenFromContext(ctx); !ok || tok != "raw-token" {
		t.Fatalf("unexpected token: %s ok=%v", tok, ok)
	}
}
