package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type scanRepository struct {
	BaseRepository
}

func NewScanRepository(base BaseRepository) repository.ScanRepository {
	return &scanRepository{base}
}

const scanColumns = `
	id, name, description, category_id, price, min_price, max_price,
	duration_minutes, is_active, created_by, updated_by, created_at, updated_at
`

func (r *scanRepository) Create(ctx context.Context, scan *model.Scan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO scans (
			id, name, description, category_id, price, min_price, max_price,
			duration_minutes, is_active, created_by, updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, query,
		scan.ID,
		scan.Name,
		scan.Description,
		scan.CategoryID,
		scan.Price,
		scan.MinPrice,
		scan.MaxPrice,
		scan.Duration,
		scan.IsActive,
		scan.CreatedBy,
		scan.UpdatedBy,
		scan.CreatedAt,
		scan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}

	if err := replaceScanItemsTx(ctx, tx, scan.ID, scan.Items); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *scanRepository) Get(ctx context.Context, id uuid.UUID) (*model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = $1`

	var scan model.Scan
	err := r.db.GetContext(ctx, &scan, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("scan", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	if scan.Items, err = r.getItems(ctx, id); err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *scanRepository) Update(ctx context.Context, scan *model.Scan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE scans
		SET name = $1, description = $2, price = $3, min_price = $4,
			max_price = $5, duration_minutes = $6, is_active = $7,
			updated_by = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := tx.ExecContext(ctx, query,
		scan.Name,
		scan.Description,
		scan.Price,
		scan.MinPrice,
		scan.MaxPrice,
		scan.Duration,
		scan.IsActive,
		scan.UpdatedBy,
		scan.UpdatedAt,
		scan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	if err := requireRowsAffected(result, "scan"); err != nil {
		return err
	}

	if err := replaceScanItemsTx(ctx, tx, scan.ID, scan.Items); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *scanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return requireRowsAffected(result, "scan")
}

func (r *scanRepository) List(ctx context.Context, filters *model.ScanFilters) ([]*model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.CategoryID != nil {
		query += fmt.Sprintf(" AND category_id = $%d", argCount)
		args = append(args, *filters.CategoryID)
		argCount++
	}
	if filters.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", argCount)
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.MinPrice != nil {
		query += fmt.Sprintf(" AND price >= $%d", argCount)
		args = append(args, *filters.MinPrice)
		argCount++
	}
	if filters.MaxPrice != nil {
		query += fmt.Sprintf(" AND price <= $%d", argCount)
		args = append(args, *filters.MaxPrice)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var scans []*model.Scan
	if err := r.db.SelectContext(ctx, &scans, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	for _, scan := range scans {
		var err error
		if scan.Items, err = r.getItems(ctx, scan.ID); err != nil {
			return nil, err
		}
	}
	return scans, nil
}

func (r *scanRepository) getItems(ctx context.Context, scanID uuid.UUID) ([]model.ScanItem, error) {
	query := `
		SELECT stock_item_id, quantity
		FROM scan_items
		WHERE scan_id = $1
	`
	var items []model.ScanItem
	if err := r.db.SelectContext(ctx, &items, query, scanID); err != nil {
		return nil, fmt.Errorf("failed to get scan items: %w", err)
	}
	return items, nil
}

func replaceScanItemsTx(ctx context.Context, tx *sqlx.Tx, scanID uuid.UUID, items []model.ScanItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_items WHERE scan_id = $1`, scanID); err != nil {
		return fmt.Errorf("failed to clear scan items: %w", err)
	}

	query := `INSERT INTO scan_items (scan_id, stock_item_id, quantity) VALUES ($1, $2, $3)`
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query, scanID, item.StockItemID, item.Quantity); err != nil {
			return fmt.Errorf("failed to store scan item: %w", err)
		}
	}
	return nil
}
