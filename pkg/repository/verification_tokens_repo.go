package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// VerificationTokensRepository handles email verification token persistence.
type VerificationTokensRepository struct {
	db *sql.DB
}

// NewVerificationTokensRepository creates a new verification tokens repository.
func NewVerificationTokensRepository(db *sql.DB) *VerificationTokensRepository {
	return &VerificationTokensRepository{db: db}
}

// Create creates a new verification token.
func (r *VerificationTokensRepository) Create(ctx context.Context, token *domain.EmailVerificationToken) error {
	return r.CreateTx(ctx, r.db, token)
}

// CreateTx creates a new verification token within a transaction.
func (r *VerificationTokensRepository) CreateTx(ctx context.Context, q Querier, token *domain.EmailVerificationToken) error {
	query := `
		INSERT INTO email_verification_tokens (id, account_id, token, created_at, expires_at, is_used)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`
	_, err := q.ExecContext(ctx, query,
		token.ID, token.AccountID, token.Token, token.CreatedAt, token.ExpiresAt,
	)
	return err
}

// GetByToken retrieves a verification token by its exact value.
func (r *VerificationTokensRepository) GetByToken(ctx context.Context, rawToken string) (*domain.EmailVerificationToken, error) {
	query := `
		SELECT id, account_id, token, created_at, expires_at, is_used, used_at
		FROM email_verification_tokens
		WHERE token = $1
	`
	token := &domain.EmailVerificationToken{}
	err := r.db.QueryRowContext(ctx, query, rawToken).Scan(
		&token.ID, &token.AccountID, &token.Token,
		&token.CreatedAt, &token.ExpiresAt, &token.IsUsed, &token.UsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ConsumeTx marks a token used within a transaction and returns the
// owning account ID. The update is conditional on is_used being false;
// no matching row means another caller consumed it first and maps to
// domain.ErrTokenConsumed.
func (r *VerificationTokensRepository) ConsumeTx(ctx context.Context, q Querier, tokenID uuid.UUID, now time.Time) (uuid.UUID, error) {
	query := `
		UPDATE email_verification_tokens
		SET is_used = TRUE, used_at = $2
		WHERE id = $1 AND is_used = FALSE
		RETURNING account_id
	`
	var accountID uuid.UUID
	err := q.QueryRowContext(ctx, query, tokenID, now).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, domain.ErrTokenConsumed
	}
	if err != nil {
		return uuid.Nil, err
	}
	return accountID, nil
}

// DeleteExpired removes tokens whose expiry passed before the cutoff.
func (r *VerificationTokensRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM email_verification_tokens WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
