package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// Product is the catalog listing plus its stock ledger counters. The counters
// are only ever mutated through internal/ledger so that version bumps and
// audit rows stay in lockstep.
type Product struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SKU             string         `gorm:"column:sku;not null;uniqueIndex"`
	Name            string         `gorm:"column:name;not null"`
	Tags            pq.StringArray `gorm:"column:tags;type:text[]"`
	UnitPriceCents  int            `gorm:"column:unit_price_cents;not null"`
	PhysicalStock   int            `gorm:"column:physical_stock;not null;default:0"`
	ReservedStock   int            `gorm:"column:reserved_stock;not null;default:0"`
	ReorderPoint    int            `gorm:"column:reorder_point;not null;default:0"`
	MaxStockLevel   int            `gorm:"column:max_stock_level;not null;default:0"`
	Version         int            `gorm:"column:version;not null;default:1"`
	LastStockUpdate time.Time      `gorm:"column:last_stock_update"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableStock is physical minus reserved; a view, never a stored column.
func (p Product) AvailableStock() int {
	return p.PhysicalStock - p.ReservedStock
}

// StockStatus derives the display status from the counters.
func (p Product) StockStatus() enums.StockStatus {
	return enums.DeriveStockStatus(p.PhysicalStock, p.ReservedStock, p.ReorderPoint)
}
