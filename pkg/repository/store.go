package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// Store composes the per-entity repositories behind the orchestrator's
// persistence contract, supplying transactions for the composite
// operations.
type Store struct {
	db            *sql.DB
	accounts      *AccountsRepository
	verifications *VerificationTokensRepository
	resets        *ResetTokensRepository
	sessions      *SessionsRepository
}

// NewStore creates a store over the given connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		accounts:      NewAccountsRepository(db),
		verifications: NewVerificationTokensRepository(db),
		resets:        NewResetTokensRepository(db),
		sessions:      NewSessionsRepository(db),
	}
}

// Accounts exposes the underlying accounts repository.
func (s *Store) Accounts() *AccountsRepository { return s.accounts }

// Sessions exposes the underlying sessions repository.
func (s *Store) Sessions() *SessionsRepository { return s.sessions }

// CreateAccountWithVerification persists the account and its first
// verification token in one transaction.
func (s *Store) CreateAccountWithVerification(ctx context.Context, account *domain.Account, token *domain.EmailVerificationToken) error {
	return Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.accounts.CreateTx(ctx, tx, account); err != nil {
			return err
		}
		return s.verifications.CreateTx(ctx, tx, token)
	})
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.accounts.GetByEmail(ctx, email)
}

func (s *Store) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *Store) CreateVerificationToken(ctx context.Context, token *domain.EmailVerificationToken) error {
	return s.verifications.Create(ctx, token)
}

func (s *Store) FindVerificationToken(ctx context.Context, rawToken string) (*domain.EmailVerificationToken, error) {
	return s.verifications.GetByToken(ctx, rawToken)
}

// ConsumeVerificationToken marks the token used and the owning account
// verified in one transaction, returning the updated account. The
// conditional consume guarantees a single winner under concurrency.
func (s *Store) ConsumeVerificationToken(ctx context.Context, tokenID uuid.UUID, now time.Time) (*domain.Account, error) {
	var account *domain.Account
	err := Tx(ctx, s.db, func(tx *sql.Tx) error {
		accountID, err := s.verifications.ConsumeTx(ctx, tx, tokenID, now)
		if err != nil {
			return err
		}
		if err := s.accounts.MarkVerifiedTx(ctx, tx, accountID, now); err != nil {
			return err
		}
		account, err = s.accounts.GetByIDTx(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) CreateResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	return s.resets.Create(ctx, token)
}

func (s *Store) FindResetToken(ctx context.Context, rawToken string) (*domain.PasswordResetToken, error) {
	return s.resets.GetByToken(ctx, rawToken)
}

// ResetCredential consumes the reset token, swaps the credential, and
// deactivates every session of the account as one transaction.
func (s *Store) ResetCredential(ctx context.Context, tokenID, accountID uuid.UUID, newHash string, now time.Time) error {
	return Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.resets.MarkUsedTx(ctx, tx, tokenID, now); err != nil {
			return err
		}
		if err := s.accounts.UpdatePasswordHashTx(ctx, tx, accountID, newHash, now); err != nil {
			return err
		}
		return s.sessions.DeactivateAllByAccountIDTx(ctx, tx, accountID)
	})
}

func (s *Store) RecordLoginFailure(ctx context.Context, accountID uuid.UUID, now, lockUntil time.Time, maxAttempts int) (int, bool, error) {
	return s.accounts.RecordLoginFailure(ctx, accountID, now, lockUntil, maxAttempts)
}

func (s *Store) ClearLockout(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	return s.accounts.ClearLockout(ctx, accountID, now)
}

// RecordLoginSuccessWithSession resets the failure counter, stamps
// last_login_at, and inserts the session in one transaction.
func (s *Store) RecordLoginSuccessWithSession(ctx context.Context, accountID uuid.UUID, now time.Time, session *domain.Session) error {
	return Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.accounts.RecordLoginSuccessTx(ctx, tx, accountID, now); err != nil {
			return err
		}
		return s.sessions.CreateTx(ctx, tx, session)
	})
}

func (s *Store) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.GetActiveByToken(ctx, token)
}

func (s *Store) DeactivateSession(ctx context.Context, id uuid.UUID) error {
	return s.sessions.Deactivate(ctx, id)
}

// PurgeExpired removes verification tokens, reset tokens, and sessions
// whose expiry passed before the given time. Used records fall out with
// their expiry. Returns the total number of rows removed.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	n, err := s.verifications.DeleteExpired(ctx, cutoff)
	if err != nil {
		return total, err
	}
	total += n
	n, err = s.resets.DeleteExpired(ctx, cutoff)
	if err != nil {
		return total, err
	}
	total += n
	n, err = s.sessions.DeleteExpired(ctx, cutoff)
	if err != nil {
		return total, err
	}
	total += n
	return total, nil
}
