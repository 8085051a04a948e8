package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// InventoryAuditLog is the append-only record of every ledger mutation.
// Rows are never updated or deleted.
type InventoryAuditLog struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID           uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	OperationType       enums.AuditOperation `gorm:"column:operation_type;type:audit_operation;not null"`
	PhysicalStockBefore int                  `gorm:"column:physical_stock_before;not null"`
	PhysicalStockAfter  int                  `gorm:"column:physical_stock_after;not null"`
	ReservedStockBefore int                  `gorm:"column:reserved_stock_before;not null"`
	ReservedStockAfter  int                  `gorm:"column:reserved_stock_after;not null"`
	OrderID             *uuid.UUID           `gorm:"column:order_id;type:uuid"`
	UserID              *uuid.UUID           `gorm:"column:user_id;type:uuid"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
}
