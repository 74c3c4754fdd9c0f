package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(base BaseRepository) repository.TokenRepository {
	return &tokenRepository{base}
}

func (r *tokenRepository) StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	query := `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := r.db.ExecContext(ctx, query, token, userID, expiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *tokenRepository) ValidateResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM password_reset_tokens
		WHERE token = $1 AND expires_at > NOW() AND used_at IS NULL
	`
	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID, query, token)
	if err == sql.ErrNoRows {
		return uuid.Nil, errors.Unauthorized("invalid or expired reset token", err)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to validate reset token: %w", err)
	}
	return userID, nil
}

func (r *tokenRepository) InvalidateResetToken(ctx context.Context, token string) error {
	query := `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("failed to invalidate reset token: %w", err)
	}
	return nil
}
