package domain

import "time"

// MinPasswordLength is the shortest password accepted at registration and profile update.
const MinPasswordLength = 4

// User models an account that owns notes and collections.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated actor decoded from a bearer token.
type Identity struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// UserPatch lists the profile fields to change. Nil fields are left untouched.
type UserPatch struct {
	Username     *string
	PasswordHash *string
}
