package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "milstock"

// Claims are the identity claims embedded in a session token. The role is
// read back from the token on every request without consulting the identity
// store; a role changed after issuance takes effect at the next login.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies stateless HS256 session tokens. Verification
// is signature-only unless a revocation check is installed.
type Tokens struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	now     func() time.Time
	revoked func(Claims) error
}

// TokenOption configures Tokens.
type TokenOption func(*Tokens)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(t *Tokens) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			t.issuer = issuer
		}
	}
}

// WithTTL configures token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(t *Tokens) {
		if fn != nil {
			t.now = fn
		}
	}
}

// WithRevocationCheck installs a hook consulted after signature and claim
// validation. A non-nil return marks the token revoked.
func WithRevocationCheck(fn func(Claims) error) TokenOption {
	return func(t *Tokens) {
		t.revoked = fn
	}
}

// NewTokens constructs a token service. The secret is required; there is no
// fallback value.
func NewTokens(secret string, opts ...TokenOption) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	t := &Tokens{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    15 * time.Minute,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a session token carrying the identity's id, email and role.
func (t *Tokens) Issue(identity Identity) (string, time.Time, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", time.Time{}, errors.New("auth: identity id is required")
	}
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and registered claims. An expired token fails
// with ErrTokenExpired; every other defect is ErrInvalidToken.
func (t *Tokens) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tk *jwt.Token) (any, error) {
		if tk.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Role) == "" {
		return Claims{}, ErrInvalidToken
	}
	if t.revoked != nil {
		if err := t.revoked(*claims); err != nil {
			return Claims{}, fmt.Errorf("%w: %s", ErrTokenRevoked, err)
		}
	}
	return *claims, nil
}

// Identity reconstructs the identity embedded in verified claims.
func (c Claims) Identity() Identity {
	return Identity{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.Role,
	}
}
