package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// SessionsRepository handles session persistence.
type SessionsRepository struct {
	db *sql.DB
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *sql.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Create creates a new session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.Session) error {
	return r.CreateTx(ctx, r.db, session)
}

// CreateTx creates a new session within a transaction.
func (r *SessionsRepository) CreateTx(ctx context.Context, q Querier, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, token, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		session.ID, session.AccountID, session.Token,
		session.IsActive, session.ExpiresAt, session.CreatedAt,
	)
	return err
}

// GetActiveByToken retrieves an active session by its exact token string.
func (r *SessionsRepository) GetActiveByToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT id, account_id, token, is_active, expires_at, created_at
		FROM sessions
		WHERE token = $1 AND is_active = TRUE
	`
	session := &domain.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&session.ID, &session.AccountID, &session.Token,
		&session.IsActive, &session.ExpiresAt, &session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Deactivate deactivates a session.
func (r *SessionsRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvalidSession
	}
	return nil
}

// DeactivateAllByAccountIDTx deactivates every session of an account
// within a transaction.
func (r *SessionsRepository) DeactivateAllByAccountIDTx(ctx context.Context, q Querier, accountID uuid.UUID) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE
		WHERE account_id = $1 AND is_active = TRUE
	`
	_, err := q.ExecContext(ctx, query, accountID)
	return err
}

// DeleteExpired deletes sessions whose expiry passed before the cutoff.
func (r *SessionsRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
