package model

import (
	"strings"
	"time"
)

// Role is the closed set of account roles.  Every authorization decision
// switches over these three values; unknown strings never become a Role.
type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleEmployee, RoleAdmin:
		return r, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// User represents an application user record as stored in the `users`
// table.  HotelID is only meaningful for employees and is nil for
// everybody else.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	PasswordHash – bcrypt hashed password.
//	Role         – user, employee or admin.
//	HotelID      – hotel the employee is assigned to (nullable).
type User struct {
	ID           uint64  // users.id
	Username     string  // users.username
	PasswordHash string  // users.password_hash
	Role         Role    // users.role
	HotelID      *uint64 // users.hotel_id (nullable)
}

// RefreshToken models an entry in the `refresh_tokens` table.  The raw
// token handed to the client is never stored; only its SHA‑256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA‑256 hex digest of the token value.
//	ExpiresAt – issued-at plus the refresh TTL.
//	IsRevoked – flipped to true on logout, rotation or a newer login.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	IsRevoked bool      // refresh_tokens.is_revoked
}

// Active reports whether the token can still be exchanged at instant now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && t.ExpiresAt.After(now)
}
