package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type stockRepository struct {
	BaseRepository
}

func NewStockRepository(base BaseRepository) repository.StockRepository {
	return &stockRepository{base}
}

const stockColumns = `
	id, item_name, category, quantity, min_quantity, unit, location,
	expiry_date, last_updated_by, created_at, updated_at
`

func (r *stockRepository) Create(ctx context.Context, item *model.StockItem) error {
	query := `
		INSERT INTO stock_items (
			id, item_name, category, quantity, min_quantity, unit, location,
			expiry_date, last_updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.ItemName,
		item.Category,
		item.Quantity,
		item.MinQuantity,
		item.Unit,
		item.Location,
		item.ExpiryDate,
		item.LastUpdatedBy,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("a stock item with this name already exists", err)
		}
		return fmt.Errorf("failed to create stock item: %w", err)
	}
	return nil
}

func (r *stockRepository) Get(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE id = $1`

	var item model.StockItem
	err := r.db.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("stock item", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock item: %w", err)
	}
	return &item, nil
}

func (r *stockRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.StockItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE id = ANY($1)`

	var items []*model.StockItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get stock items: %w", err)
	}
	return items, nil
}

func (r *stockRepository) Update(ctx context.Context, item *model.StockItem) error {
	// quantity only moves through AdjustQuantity so concurrent deductions
	// cannot clobber each other.
	query := `
		UPDATE stock_items
		SET item_name = $1, category = $2, min_quantity = $3, unit = $4,
			location = $5, expiry_date = $6, last_updated_by = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		item.ItemName,
		item.Category,
		item.MinQuantity,
		item.Unit,
		item.Location,
		item.ExpiryDate,
		item.LastUpdatedBy,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock item: %w", err)
	}
	return requireRowsAffected(result, "stock item")
}

// AdjustQuantity applies the delta in a single guarded update. The quantity
// predicate makes an over-deduction update zero rows instead of going
// negative.
func (r *stockRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int, updatedBy uuid.UUID, at time.Time) (*model.StockItem, error) {
	query := `
		UPDATE stock_items
		SET quantity = quantity + $1, last_updated_by = $2, updated_at = $3
		WHERE id = $4 AND quantity + $1 >= 0
		RETURNING ` + stockColumns

	var item model.StockItem
	err := r.db.GetContext(ctx, &item, query, delta, updatedBy, at, id)
	if err == sql.ErrNoRows {
		// Distinguish a missing item from an over-deduction.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.Conflict("insufficient stock for this deduction", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock quantity: %w", err)
	}
	return &item, nil
}

func (r *stockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stock item: %w", err)
	}
	return requireRowsAffected(result, "stock item")
}

func (r *stockRepository) List(ctx context.Context, filters *model.StockFilters) ([]*model.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argCount)
		args = append(args, *filters.Category)
		argCount++
	}
	if filters.LowStock {
		query += " AND quantity <= min_quantity"
	}
	if filters.Expired {
		query += " AND expiry_date IS NOT NULL AND expiry_date < NOW()"
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND item_name ILIKE $%d", argCount)
		args = append(args, "%"+filters.Search+"%")
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY item_name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var items []*model.StockItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	return items, nil
}

func (r *stockRepository) ListLow(ctx context.Context) ([]*model.StockItem, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_items
		WHERE quantity <= min_quantity
		ORDER BY item_name ASC
	`
	var items []*model.StockItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}
	return items, nil
}
