package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"milstock.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/api/auth/signup",
	"/api/auth/login",
}

// withAuth verifies the bearer token on protected paths and attaches the
// identity claims to the context. In open mode (no token service) every
// request passes unverified.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || !a.authEnabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthenticated(w, r, err.Error())
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				unauthenticated(w, r, "token expired")
			case errors.Is(err, auth.ErrTokenRevoked):
				unauthenticated(w, r, "token revoked")
			default:
				unauthenticated(w, r, "invalid token")
			}
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), claims.Identity())
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a handler behind an exact role match. Runs strictly
// after withAuth: a missing identity on a protected path means verification
// was skipped, which is answered as unauthenticated, never as forbidden.
func (a *API) requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.authEnabled() {
			next(w, r)
			return
		}
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			unauthenticated(w, r, "missing bearer token")
			return
		}
		if identity.Role != role {
			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_role"`)
			writeError(w, r, http.StatusForbidden, "role "+role+" required")
			return
		}
		next(w, r)
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="milstock"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
