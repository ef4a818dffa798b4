package domain

import "time"

// User represents an account in the system
type User struct {
	ID                     string     `json:"id" db:"id"`
	Username               string     `json:"username" db:"username"`
	Email                  string     `json:"email" db:"email"`
	PasswordHash           string     `json:"-" db:"password_hash"`
	Verified               bool       `json:"verified" db:"verified"`
	VerificationToken      *string    `json:"-" db:"verification_token"`
	RefreshTokenHash       *string    `json:"-" db:"refresh_token_hash"`
	PasswordResetTokenHash *string    `json:"-" db:"password_reset_token_hash"`
	PasswordResetExpires   *time.Time `json:"-" db:"password_reset_expires"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}
