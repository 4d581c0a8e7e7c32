package httpapi

import (
	"errors"
	"net/http"
	"time"

	"milstock.org/internal/auth"
)

type credentialRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, err := a.accounts.Register(r.Context(), req.Email, req.Secret)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	resp := tokenResponse{Message: "user created"}
	if a.authEnabled() {
		token, expiresAt, err := a.tokens.Issue(identity)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "token generation failed")
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expiresAt
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, err := a.accounts.Authenticate(r.Context(), req.Email, req.Secret)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	resp := tokenResponse{Message: "login successful"}
	if a.authEnabled() {
		token, expiresAt, err := a.tokens.Issue(identity)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "token generation failed")
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidCredential):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
