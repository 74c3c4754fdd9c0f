package model

import (
	"github.com/google/uuid"
)

// ScanCategory groups scan types and carries the price used to derive an
// appointment's total amount.
type ScanCategory struct {
	Base
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description,omitempty" db:"description"`
	Price       float64 `json:"price" db:"price"`
	IsActive    bool    `json:"is_active" db:"is_active"`
}

type CreateScanCategoryRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Description string  `json:"description" binding:"max=500"`
	Price       float64 `json:"price" binding:"required,min=0"`
}

type UpdateScanCategoryRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`
	IsActive    *bool    `json:"is_active"`
}

// ScanItem is one consumable requirement of a scan.
type ScanItem struct {
	StockItemID uuid.UUID `json:"stock_item_id" db:"stock_item_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
}

// Scan represents a diagnostic scan offering. Creation and update are gated
// on stock sufficiency for every referenced item; stock is never reserved or
// decremented here.
type Scan struct {
	Base
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	CategoryID  uuid.UUID  `json:"category_id" db:"category_id"`
	Price       float64    `json:"price" db:"price"`
	MinPrice    float64    `json:"min_price" db:"min_price"`
	MaxPrice    float64    `json:"max_price" db:"max_price"`
	Items       []ScanItem `json:"items" db:"-"`
	Duration    int        `json:"duration_minutes" db:"duration_minutes"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedBy   uuid.UUID  `json:"created_by" db:"created_by"`
	UpdatedBy   uuid.UUID  `json:"updated_by" db:"updated_by"`
}

type CreateScanRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=100"`
	Description string     `json:"description" binding:"max=1000"`
	CategoryID  uuid.UUID  `json:"category_id" binding:"required"`
	Price       float64    `json:"price" binding:"required,min=0"`
	MinPrice    float64    `json:"min_price" binding:"min=0"`
	MaxPrice    float64    `json:"max_price" binding:"required,min=0"`
	Items       []ScanItem `json:"items" binding:"required,min=1,dive"`
	Duration    int        `json:"duration_minutes" binding:"required,min=1"`
}

type UpdateScanRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	Price       *float64   `json:"price" binding:"omitempty,min=0"`
	MinPrice    *float64   `json:"min_price" binding:"omitempty,min=0"`
	MaxPrice    *float64   `json:"max_price" binding:"omitempty,min=0"`
	Items       []ScanItem `json:"items" binding:"omitempty,min=1,dive"`
	Duration    *int       `json:"duration_minutes" binding:"omitempty,min=1"`
	IsActive    *bool      `json:"is_active"`
}

// StockStatus is one line of a scan availability report.
type StockStatus struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	ItemName    string    `json:"item_name"`
	Required    int       `json:"required"`
	Available   int       `json:"available"`
	Sufficient  bool      `json:"sufficient"`
}

type ScanFilters struct {
	ListParams
	CategoryID *uuid.UUID `form:"category_id"`
	IsActive   *bool      `form:"is_active"`
	MinPrice   *float64   `form:"min_price"`
	MaxPrice   *float64   `form:"max_price"`
}
