package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type scanCategoryRepository struct {
	BaseRepository
}

func NewScanCategoryRepository(base BaseRepository) repository.ScanCategoryRepository {
	return &scanCategoryRepository{base}
}

func (r *scanCategoryRepository) Create(ctx context.Context, category *model.ScanCategory) error {
	query := `
		INSERT INTO scan_categories (
			id, name, description, price, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		category.ID,
		category.Name,
		category.Description,
		category.Price,
		category.IsActive,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("a scan category with this name already exists", err)
		}
		return fmt.Errorf("failed to create scan category: %w", err)
	}
	return nil
}

func (r *scanCategoryRepository) Get(ctx context.Context, id uuid.UUID) (*model.ScanCategory, error) {
	query := `
		SELECT id, name, description, price, is_active, created_at, updated_at
		FROM scan_categories
		WHERE id = $1
	`
	var category model.ScanCategory
	err := r.db.GetContext(ctx, &category, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("scan category", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan category: %w", err)
	}
	return &category, nil
}

func (r *scanCategoryRepository) Update(ctx context.Context, category *model.ScanCategory) error {
	query := `
		UPDATE scan_categories
		SET name = $1, description = $2, price = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		category.Name,
		category.Description,
		category.Price,
		category.IsActive,
		category.UpdatedAt,
		category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("a scan category with this name already exists", err)
		}
		return fmt.Errorf("failed to update scan category: %w", err)
	}
	return requireRowsAffected(result, "scan category")
}

func (r *scanCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scan_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan category: %w", err)
	}
	return requireRowsAffected(result, "scan category")
}

func (r *scanCategoryRepository) List(ctx context.Context, params *model.ListParams) ([]*model.ScanCategory, error) {
	query := `
		SELECT id, name, description, price, is_active, created_at, updated_at
		FROM scan_categories
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	var categories []*model.ScanCategory
	if err := r.db.SelectContext(ctx, &categories, query, params.Limit, params.Offset); err != nil {
		return nil, fmt.Errorf("failed to list scan categories: %w", err)
	}
	return categories, nil
}
