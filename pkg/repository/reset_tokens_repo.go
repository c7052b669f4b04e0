package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// ResetTokensRepository handles password reset token persistence.
type ResetTokensRepository struct {
	db *sql.DB
}

// NewResetTokensRepository creates a new reset tokens repository.
func NewResetTokensRepository(db *sql.DB) *ResetTokensRepository {
	return &ResetTokensRepository{db: db}
}

// Create creates a new reset token.
func (r *ResetTokensRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, account_id, token, created_at, expires_at, is_used)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.AccountID, token.Token, token.CreatedAt, token.ExpiresAt,
	)
	return err
}

// GetByToken retrieves a reset token by its exact value.
func (r *ResetTokensRepository) GetByToken(ctx context.Context, rawToken string) (*domain.PasswordResetToken, error) {
	query := `
		SELECT id, account_id, token, created_at, expires_at, is_used, used_at
		FROM password_reset_tokens
		WHERE token = $1
	`
	token := &domain.PasswordResetToken{}
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

// MarkUsedTx marks a token used within a transaction, conditional on it
// being unused; a zero row count maps to domain.ErrTokenConsumed.
func (r *ResetTokensRepository) MarkUsedTx(ctx context.Context, q Querier, tokenID uuid.UUID, now time.Time) error {
	query := `
		UPDATE password_reset_tokens
		SET is_used = TRUE, used_at = $2
		WHERE id = $1 AND is_used = FALSE
	`
	result, err := q.ExecContext(ctx, query, tokenID, now)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTokenConsumed
	}
	return nil
}

// DeleteExpired removes tokens whose expiry passed before the cutoff.
func (r *ResetTokensRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
