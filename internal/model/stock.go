package model

import (
	"time"

	"github.com/google/uuid"
)

// StockItem represents a consumable inventory item. Quantity is the sole
// mutable counter; MinQuantity is the reorder threshold that drives the
// low-stock sweep.
type StockItem struct {
	Base
	ItemName      string     `json:"item_name" db:"item_name"`
	Category      string     `json:"category" db:"category"`
	Quantity      int        `json:"quantity" db:"quantity"`
	MinQuantity   int        `json:"min_quantity" db:"min_quantity"`
	Unit          string     `json:"unit" db:"unit"`
	Location      *string    `json:"location,omitempty" db:"location"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	LastUpdatedBy uuid.UUID  `json:"last_updated_by" db:"last_updated_by"`
}

// IsLow reports whether the item is at or below its reorder threshold.
func (s *StockItem) IsLow() bool {
	return s.Quantity <= s.MinQuantity
}

type CreateStockItemRequest struct {
	ItemName    string     `json:"item_name" binding:"required,min=2,max=100"`
	Category    string     `json:"category" binding:"required"`
	Quantity    int        `json:"quantity" binding:"min=0"`
	MinQuantity int        `json:"min_quantity" binding:"min=0"`
	Unit        string     `json:"unit" binding:"required"`
	Location    *string    `json:"location"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

type UpdateStockItemRequest struct {
	ItemName    *string    `json:"item_name" binding:"omitempty,min=2,max=100"`
	Category    *string    `json:"category"`
	MinQuantity *int       `json:"min_quantity" binding:"omitempty,min=0"`
	Unit        *string    `json:"unit"`
	Location    *string    `json:"location"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

// AdjustQuantityRequest adds or deducts stock. Deductions below zero are
// rejected.
type AdjustQuantityRequest struct {
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Operation string `json:"operation" binding:"required,oneof=add deduct"`
}

type StockFilters struct {
	ListParams
	Category *string `form:"category"`
	LowStock bool    `form:"low_stock"`
	Expired  bool    `form:"expired"`
	Search   string  `form:"search"`
}
