package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (
			id, username, email, password_hash, phone_number,
			is_active, is_super_admin, two_factor_enabled, two_factor_secret,
			password_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.IsActive,
		user.IsSuperAdmin,
		user.TwoFactorEnabled,
		user.TwoFactorSecret,
		user.PasswordChangedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("a user with this email or username already exists", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := replaceGrantsTx(ctx, tx, user.ID, user.Privileges); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, phone_number,
			   is_active, is_super_admin, two_factor_enabled, two_factor_secret,
			   last_login_at, password_changed_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Privileges, err = r.getGrants(ctx, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, phone_number,
			   is_active, is_super_admin, two_factor_enabled, two_factor_secret,
			   last_login_at, password_changed_at, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if user.Privileges, err = r.getGrants(ctx, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, phone_number = $3, is_active = $4,
			last_login_at = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.PhoneNumber,
		user.IsActive,
		user.LastLoginAt,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("a user with this email or username already exists", err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowsAffected(result, "user")
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, changedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRowsAffected(result, "user")
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowsAffected(result, "user")
}

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	query := `
		SELECT id, username, email, phone_number,
			   is_active, is_super_admin, two_factor_enabled,
			   last_login_at, created_at, updated_at
		FROM users
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", argCount)
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND (username ILIKE $%d OR email ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ReplaceGrants(ctx context.Context, userID uuid.UUID, grants []privilege.Grant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceGrantsTx(ctx, tx, userID, grants); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *userRepository) ListWithPrivilege(ctx context.Context, module privilege.Module, op privilege.Operation) ([]*model.User, error) {
	query := `
		SELECT DISTINCT u.id, u.username, u.email, u.phone_number,
			   u.is_active, u.is_super_admin, u.two_factor_enabled,
			   u.last_login_at, u.created_at, u.updated_at
		FROM users u
		LEFT JOIN user_privileges p ON p.user_id = u.id
		WHERE u.is_active = true
		AND (u.is_super_admin = true OR (p.module = $1 AND $2 = ANY(p.operations)))
	`
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, string(module), string(op)); err != nil {
		return nil, fmt.Errorf("failed to list users with privilege: %w", err)
	}
	return users, nil
}

type grantRow struct {
	Module     string         `db:"module"`
	Operations pq.StringArray `db:"operations"`
	GrantedBy  uuid.UUID      `db:"granted_by"`
	GrantedAt  time.Time      `db:"granted_at"`
}

func (r *userRepository) getGrants(ctx context.Context, userID uuid.UUID) ([]privilege.Grant, error) {
	query := `
		SELECT module, operations, granted_by, granted_at
		FROM user_privileges
		WHERE user_id = $1
		ORDER BY module ASC
	`
	var rows []grantRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user privileges: %w", err)
	}

	grants := make([]privilege.Grant, 0, len(rows))
	for _, row := range rows {
		ops := make([]privilege.Operation, 0, len(row.Operations))
		for _, op := range row.Operations {
			ops = append(ops, privilege.Operation(op))
		}
		grants = append(grants, privilege.Grant{
			Module:     privilege.Module(row.Module),
			Operations: ops,
			GrantedBy:  row.GrantedBy,
			GrantedAt:  row.GrantedAt,
		})
	}
	return grants, nil
}

// replaceGrantsTx swaps the stored grant set for the in-memory one. Grants are
// small per user, so a delete and re-insert keeps the write simple.
func replaceGrantsTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, grants []privilege.Grant) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_privileges WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user privileges: %w", err)
	}

	query := `
		INSERT INTO user_privileges (user_id, module, operations, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, g := range grants {
		ops := make(pq.StringArray, 0, len(g.Operations))
		for _, op := range g.Operations {
			ops = append(ops, string(op))
		}
		if _, err := tx.ExecContext(ctx, query, userID, string(g.Module), ops, g.GrantedBy, g.GrantedAt); err != nil {
			return fmt.Errorf("failed to store user privilege: %w", err)
		}
	}
	return nil
}
