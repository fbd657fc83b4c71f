package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
)

const refreshTokenColumns = `
	id, user_id, token, expires_at, revoked, revoked_at, ip, user_agent, created_at
`

// PostgresRefreshTokenRepository implements RefreshTokenRepository using PostgreSQL
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenRepository creates a new PostgresRefreshTokenRepository
func NewPostgresRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

// Create persists a new refresh token
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.Revoked,
		token.RevokedAt,
		token.IP,
		token.UserAgent,
		token.CreatedAt,
	)
	return err
}

// GetByToken retrieves a refresh token by its opaque value
func (r *PostgresRefreshTokenRepository) GetByToken(ctx context.Context, tokenValue string) (*domain.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1`
	token := &domain.RefreshToken{}
	err := r.pool.QueryRow(ctx, query, tokenValue).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.Revoked,
		&token.RevokedAt,
		&token.IP,
		&token.UserAgent,
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

// Rotate atomically revokes the old token and persists its successor.
// The revoke UPDATE is guarded on revoked = false, so of two concurrent
// rotations of the same token exactly one wins; the loser sees
// rotated = false and no successor is written.
func (r *PostgresRefreshTokenRepository) Rotate(ctx context.Context, oldToken string, successor *domain.RefreshToken) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $2 WHERE token = $1 AND revoked = false`,
		oldToken, time.Now(),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	query := `
		INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, query,
		successor.ID,
		successor.UserID,
		successor.Token,
		successor.ExpiresAt,
		successor.Revoked,
		successor.RevokedAt,
		successor.IP,
		successor.UserAgent,
		successor.CreatedAt,
	)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Revoke marks a single token revoked. Absent or already-revoked tokens
// are left as-is.
func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, tokenValue string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $2 WHERE token = $1 AND revoked = false`,
		tokenValue, time.Now(),
	)
	return err
}

// RevokeAllForUser marks every active token of the user revoked
func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $2 WHERE user_id = $1 AND revoked = false`,
		userID, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
