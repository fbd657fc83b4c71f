package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
)

const emailTokenColumns = `
	id, user_id, token, purpose, expires_at, used_at, created_at
`

// PostgresEmailTokenRepository implements EmailTokenRepository using PostgreSQL
type PostgresEmailTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEmailTokenRepository creates a new PostgresEmailTokenRepository
func NewPostgresEmailTokenRepository(pool *pgxpool.Pool) *PostgresEmailTokenRepository {
	return &PostgresEmailTokenRepository{pool: pool}
}

// Issue marks all unused tokens of the same (user, purpose) pair used and
// persists the new token in one transaction, keeping at most one unused
// token per pair.
func (r *PostgresEmailTokenRepository) Issue(ctx context.Context, token *domain.EmailToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE email_tokens SET used_at = $3 WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL`,
		token.UserID, token.Purpose, time.Now(),
	)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO email_tokens (` + emailTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.Purpose,
		token.ExpiresAt,
		token.UsedAt,
		token.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByToken retrieves a token by value and purpose
func (r *PostgresEmailTokenRepository) GetByToken(ctx context.Context, tokenValue string, purpose domain.TokenPurpose) (*domain.EmailToken, error) {
	query := `SELECT ` + emailTokenColumns + ` FROM email_tokens WHERE token = $1 AND purpose = $2`
	token := &domain.EmailToken{}
	err := r.pool.QueryRow(ctx, query, tokenValue, purpose).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.Purpose,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// Redeem atomically marks an unused, unexpired token used. The check and
// the mark are one UPDATE, so two concurrent redemptions of the same
// token cannot both succeed.
func (r *PostgresEmailTokenRepository) Redeem(ctx context.Context, tokenValue string, purpose domain.TokenPurpose) (*domain.EmailToken, error) {
	query := `
		UPDATE email_tokens
		SET used_at = $3
		WHERE token = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3
		RETURNING ` + emailTokenColumns + `
	`
	token := &domain.EmailToken{}
	err := r.pool.QueryRow(ctx, query, tokenValue, purpose, time.Now()).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.Purpose,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}
