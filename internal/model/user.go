package model

import "time"

// Role names stored in users.role. USER is the default for new signups;
// ADMIN is assigned out of band.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. The password hash and the reset-token fields are internal state
// and must never be serialized into a response; handlers build separate
// sanitized response types.
//
// Fields:
//
//	ID                – primary key identifier of the user.
//	Name              – display name supplied at signup.
//	Email             – unique, normalized (lowercased/trimmed) address.
//	PasswordHash      – bcrypt hashed password.
//	Role              – role name (USER or ADMIN).
//	PasswordChangedAt – instant of the last password mutation; session
//	                    tokens issued before it are stale.
//	ResetTokenHash    – SHA-256 hex digest of the pending reset token,
//	                    nil when no reset is in flight.
//	ResetTokenExpires – expiry of the pending reset token, nil when no
//	                    reset is in flight. Both fields are cleared together.
//	IsActive          – whether the account is active.
//	CreatedAt         – timestamp of creation.
//	UpdatedAt         – timestamp of last update.
type User struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	PasswordChangedAt time.Time  `json:"-"`
	ResetTokenHash    *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	IsActive          bool       `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"-"`
}
