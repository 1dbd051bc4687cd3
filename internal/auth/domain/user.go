package domain

import "time"

type User struct {
	ID           string
	Email        string // stored lowercase, unique
	FullName     string
	PasswordHash string // argon2 encoded; empty for social-only accounts
	RoleID       string // Foreign key to roles table
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public shape of a user returned by the API.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}
