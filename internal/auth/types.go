package auth

import "time"

// RoleLogistics is assigned to every identity at signup. Role is a single
// string with exact-match semantics; there is no hierarchy.
const RoleLogistics = "logistics"

// Identity is a registered account: email, one-way password hash, one role.
// Identities are created at signup and never updated or deleted.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
