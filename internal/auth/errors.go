package auth

import "errors"

var (
	// ErrUnauthenticated indicates the request carried no credential at all.
	ErrUnauthenticated = errors.New("auth: missing credentials")
	// ErrInvalidToken indicates a token was presented but failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	// Kept distinct from ErrInvalidToken so callers can say which it was.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenRevoked indicates a valid token rejected by a revocation check.
	ErrTokenRevoked = errors.New("auth: token revoked")
	// ErrInvalidCredential indicates a password check failed.
	ErrInvalidCredential = errors.New("auth: invalid credentials")
	// ErrInvalidInput indicates a malformed signup or login payload.
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrConflict indicates a duplicate unique key (email already registered).
	ErrConflict = errors.New("auth: already exists")
	// ErrNotFound indicates the referenced identity does not exist.
	ErrNotFound = errors.New("auth: not found")
)
