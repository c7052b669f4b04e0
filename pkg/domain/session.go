package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated session backed by a signed token.
type Session struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Token     string
	IsActive  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UsableAt reports whether the session can authenticate requests at the
// given time: it must be active and not past its expiry.
func (s *Session) UsableAt(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
