package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// Store is the persistence contract the orchestrator depends on. Each
// method is a single atomic unit: composite operations (account plus
// token, credential swap plus session sweep) commit all writes together
// or none. Implementations map "no rows" conditions to the domain
// sentinel errors and everything else to driver errors, which the
// orchestrator wraps as transient.
type Store interface {
	// CreateAccountWithVerification persists a new account and its first
	// email verification token atomically. Returns domain.ErrDuplicateEmail
	// if the normalized email is already taken, including when a concurrent
	// registration wins the race.
	CreateAccountWithVerification(ctx context.Context, account *domain.Account, token *domain.EmailVerificationToken) error

	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// CreateVerificationToken persists a fresh verification token. Earlier
	// unused tokens are left in place; they are superseded, not revoked.
	CreateVerificationToken(ctx context.Context, token *domain.EmailVerificationToken) error
	FindVerificationToken(ctx context.Context, token string) (*domain.EmailVerificationToken, error)

	// ConsumeVerificationToken marks the token used and the owning account
	// verified in one transaction. The consume is conditional on is_used
	// being false, so of N concurrent callers exactly one succeeds; the
	// rest get domain.ErrTokenConsumed.
	ConsumeVerificationToken(ctx context.Context, tokenID uuid.UUID, now time.Time) (*domain.Account, error)

	CreateResetToken(ctx context.Context, token *domain.PasswordResetToken) error
	FindResetToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)

	// ResetCredential consumes the reset token, swaps the password hash,
	// and deactivates every session of the account as one transaction.
	// Partial application is never observable.
	ResetCredential(ctx context.Context, tokenID, accountID uuid.UUID, newHash string, now time.Time) error

	// RecordLoginFailure applies counter increment, last_failed_login, and
	// the lock-threshold check as a single read-modify-write. It returns
	// the post-increment counter and whether this attempt triggered the
	// lock (locked_until set to lockUntil).
	RecordLoginFailure(ctx context.Context, accountID uuid.UUID, now, lockUntil time.Time, maxAttempts int) (attempts int, justLocked bool, err error)

	// ClearLockout lazily unlocks an account whose locked_until elapsed:
	// is_locked false, locked_until null, counter zero.
	ClearLockout(ctx context.Context, accountID uuid.UUID, now time.Time) error

	// RecordLoginSuccessWithSession resets the failure counter, stamps
	// last_login_at, and persists the new session in one transaction. A
	// failed session insert rolls back the counter reset, so a caller
	// seeing an error can trust that nothing was written.
	RecordLoginSuccessWithSession(ctx context.Context, accountID uuid.UUID, now time.Time, session *domain.Session) error

	// FindActiveSession looks up a session by its exact token string,
	// returning domain.ErrInvalidSession when absent or inactive.
	FindActiveSession(ctx context.Context, token string) (*domain.Session, error)
	DeactivateSession(ctx context.Context, id uuid.UUID) error
}
