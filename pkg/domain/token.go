package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmailVerificationToken is a single-use token proving email ownership.
type EmailVerificationToken struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
	UsedAt    *time.Time
}

// ExpiredAt reports whether the token has expired as of the given time.
func (t *EmailVerificationToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// PasswordResetToken is a single-use token authorizing a password change.
type PasswordResetToken struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
	UsedAt    *time.Time
}

// ExpiredAt reports whether the token has expired as of the given time.
func (t *PasswordResetToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
