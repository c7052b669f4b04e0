package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user account.
type Account struct {
	ID                  uuid.UUID
	Email               string
	PasswordHash        string
	EmailVerified       bool
	IsActive            bool
	IsLocked            bool
	LockedUntil         *time.Time
	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLoginAt         *time.Time
}

// LockedAt reports whether the account is locked as of the given time.
// A lock with an elapsed locked_until is no longer considered locked;
// the orchestrator clears it lazily on the next login attempt.
func (a *Account) LockedAt(now time.Time) bool {
	if !a.IsLocked {
		return false
	}
	if a.LockedUntil == nil {
		return true
	}
	return now.Before(*a.LockedUntil)
}

// PublicInfo is the subset of account fields safe to return to callers.
type PublicInfo struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
}

// Public returns the caller-visible view of the account.
func (a *Account) Public() PublicInfo {
	return PublicInfo{
		ID:            a.ID,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
	}
}
