package users

import (
	"time"

	"docvault-backend/internal/shared/auth"
)

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the server.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         auth.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the outward-facing representation used when resolving a
// record's collaborator list for display.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Principal converts the user to an authenticated principal.
func (u User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Summary converts the user to its display form.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Email: u.Email, Name: u.Name}
}
