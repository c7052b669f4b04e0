package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/credstack/credstack/pkg/domain"
)

const accountColumns = `id, email, password_hash, email_verified, is_active, is_locked,
	       locked_until, failed_login_attempts, last_failed_login,
	       created_at, updated_at, last_login_at`

// AccountsRepository handles account persistence.
type AccountsRepository struct {
	db *sql.DB
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

// Create creates a new account.
func (r *AccountsRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.CreateTx(ctx, r.db, account)
}

// CreateTx creates a new account within a transaction. A unique violation
// on the email column maps to domain.ErrDuplicateEmail.
func (r *AccountsRepository) CreateTx(ctx context.Context, q Querier, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, email_verified, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		account.ID, account.Email, account.PasswordHash,
		account.EmailVerified, account.IsActive, account.CreatedAt, account.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrDuplicateEmail
	}
	return err
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an account by normalized email.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByIDTx retrieves an account by ID within a transaction.
func (r *AccountsRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`
	return r.scanOne(q.QueryRowContext(ctx, query, id))
}

// MarkVerifiedTx marks an account's email as verified within a transaction.
func (r *AccountsRepository) MarkVerifiedTx(ctx context.Context, q Querier, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE accounts
		SET email_verified = TRUE, updated_at = $2
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, query, id, now)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// RecordLoginFailure increments the failure counter, stamps the failure
// time, and applies the lock threshold in one statement so concurrent
// failures never lose an increment. Returns the post-increment counter
// and whether this call crossed the threshold.
func (r *AccountsRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, now, lockUntil time.Time, maxAttempts int) (int, bool, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1,
		    last_failed_login = $2,
		    is_locked = CASE WHEN failed_login_attempts + 1 >= $4 THEN TRUE ELSE is_locked END,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= $4 THEN $3 ELSE locked_until END,
		    updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts, is_locked
	`
	var attempts int
	var locked bool
	err := r.db.QueryRowContext(ctx, query, id, now, lockUntil, maxAttempts).Scan(&attempts, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, false, err
	}
	return attempts, locked && attempts == maxAttempts, nil
}

// ClearLockout resets the lock flags and failure counter.
func (r *AccountsRepository) ClearLockout(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_locked = FALSE,
		    locked_until = NULL,
		    failed_login_attempts = 0,
		    updated_at = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, now)
	return err
}

// RecordLoginSuccessTx resets the failure counter and stamps
// last_login_at within a transaction.
func (r *AccountsRepository) RecordLoginSuccessTx(ctx context.Context, q Querier, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0,
		    last_failed_login = NULL,
		    last_login_at = $2,
		    updated_at = $2
		WHERE id = $1
	`
	_, err := q.ExecContext(ctx, query, id, now)
	return err
}

// UpdatePasswordHashTx replaces the stored credential within a transaction.
func (r *AccountsRepository) UpdatePasswordHashTx(ctx context.Context, q Querier, id uuid.UUID, hash string, now time.Time) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, query, id, hash, now)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountsRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash,
		&account.EmailVerified, &account.IsActive, &account.IsLocked,
		&account.LockedUntil, &account.FailedLoginAttempts, &account.LastFailedLogin,
		&account.CreatedAt, &account.UpdatedAt, &account.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
